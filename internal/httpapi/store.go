package httpapi

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"horse.fit/incident-integrator/internal/export"
	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/report"
)

// Store is the read side the API serves from.
type Store interface {
	Report() (report.Report, error)
	Incidents() ([]incident.Record, error)
}

// FileStore serves the files written by the integrate command and reloads
// them when their modification time changes.
type FileStore struct {
	dir string

	mu          sync.Mutex
	report      report.Report
	reportMod   time.Time
	incidents   []incident.Record
	incidentMod time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Report() (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, err := modTime(filepath.Join(s.dir, export.ReportFile))
	if err != nil {
		return report.Report{}, err
	}
	if !mod.Equal(s.reportMod) {
		r, err := export.LoadReport(s.dir)
		if err != nil {
			return report.Report{}, err
		}
		s.report, s.reportMod = r, mod
	}
	return s.report, nil
}

func (s *FileStore) Incidents() ([]incident.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, err := modTime(filepath.Join(s.dir, export.IncidentsFile))
	if err != nil {
		return nil, err
	}
	if !mod.Equal(s.incidentMod) {
		records, err := export.LoadIncidents(s.dir)
		if err != nil {
			return nil, err
		}
		s.incidents, s.incidentMod = records, mod
	}
	return s.incidents, nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return time.Time{}, fmt.Errorf("%w: %s", export.ErrNoOutput, path)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
