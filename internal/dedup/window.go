package dedup

import (
	"sort"
	"time"

	"horse.fit/incident-integrator/internal/incident"
)

// WindowDays bounds how far ahead of an anchor a candidate may be dated.
const WindowDays = 30

const windowSpan = WindowDays * 24 * time.Hour

// Index orders dated records by date and answers candidate-window queries.
// Undated records are kept aside in input order and never enter a window.
type Index struct {
	records []incident.Record
	dated   []int
	undated []int
}

func NewIndex(records []incident.Record) *Index {
	idx := &Index{records: records}
	for i, rec := range records {
		if rec.HasDate() {
			idx.dated = append(idx.dated, i)
		} else {
			idx.undated = append(idx.undated, i)
		}
	}
	sort.SliceStable(idx.dated, func(a, b int) bool {
		return records[idx.dated[a]].Date.Before(*records[idx.dated[b]].Date)
	})
	return idx
}

// Len is the number of dated records.
func (x *Index) Len() int {
	return len(x.dated)
}

// At returns the input index of the record at sorted position pos.
func (x *Index) At(pos int) int {
	return x.dated[pos]
}

// Record returns the record at sorted position pos.
func (x *Index) Record(pos int) incident.Record {
	return x.records[x.dated[pos]]
}

// Undated returns input indices of records without a usable date.
func (x *Index) Undated() []int {
	return x.undated
}

// Window returns the half-open range (pos, end) of sorted positions whose
// date is at most WindowDays after the anchor at pos.
func (x *Index) Window(pos int) (start, end int) {
	start = pos + 1
	limit := x.Record(pos).Date.Add(windowSpan)
	end = start + sort.Search(len(x.dated)-start, func(i int) bool {
		return x.Record(start + i).Date.After(limit)
	})
	return start, end
}
