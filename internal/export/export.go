package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/report"
)

const (
	IncidentsFile = "integrated_incidents.csv"
	ReportFile    = "integration_report.json"
)

var ErrNoOutput = errors.New("no integration output found")

// WriteIncidents writes the canonical table in Columns order.
func WriteIncidents(w io.Writer, records []incident.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(incident.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := writer.Write(rec.Cells()); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadIncidents parses a table written by WriteIncidents.
func ReadIncidents(r io.Reader) ([]incident.Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("incidents table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	reader.FieldsPerRecord = len(header)

	var records []incident.Record
	for line := 2; ; line++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec, err := incident.FromCells(positions, cells)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func WriteReport(w io.Writer, r report.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(r)
}

func ReadReport(r io.Reader) (report.Report, error) {
	var out report.Report
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return report.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return out, nil
}

// Save writes both output files into dir. Each file is written to a
// temporary name first so readers never observe a partial file.
func Save(dir string, records []incident.Record, r report.Report) (incidentsPath, reportPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	var table bytes.Buffer
	if err := WriteIncidents(&table, records); err != nil {
		return "", "", err
	}
	var doc bytes.Buffer
	if err := WriteReport(&doc, r); err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}

	incidentsPath = filepath.Join(dir, IncidentsFile)
	reportPath = filepath.Join(dir, ReportFile)
	if err := writeAtomic(incidentsPath, table.Bytes()); err != nil {
		return "", "", err
	}
	if err := writeAtomic(reportPath, doc.Bytes()); err != nil {
		return "", "", err
	}
	return incidentsPath, reportPath, nil
}

// LoadIncidents reads the incidents table from an output dir.
func LoadIncidents(dir string) ([]incident.Record, error) {
	f, err := openOutput(filepath.Join(dir, IncidentsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadIncidents(f)
}

// LoadReport reads the report document from an output dir.
func LoadReport(dir string) (report.Report, error) {
	f, err := openOutput(filepath.Join(dir, ReportFile))
	if err != nil {
		return report.Report{}, err
	}
	defer f.Close()
	return ReadReport(f)
}

func openOutput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoOutput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
