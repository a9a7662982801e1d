// Package globaltime is the process clock used for run timestamps.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu  sync.RWMutex
	now = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return now()
}

// UTC returns the current time in UTC truncated to whole seconds, the
// precision written to reports and the runs table.
func UTC() time.Time {
	return Now().UTC().Truncate(time.Second)
}

// Freeze pins the clock to t until the returned restore func is called.
func Freeze(t time.Time) (restore func()) {
	mu.Lock()
	prev := now
	now = func() time.Time { return t }
	mu.Unlock()

	return func() {
		mu.Lock()
		now = prev
		mu.Unlock()
	}
}
