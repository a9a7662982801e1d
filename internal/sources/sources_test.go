package sources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/normalize"
)

func defaultSource(t *testing.T, name string) Source {
	t.Helper()
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	for _, src := range reg.Sources {
		if src.Name == name {
			return src
		}
	}
	t.Fatalf("source %s not in default registry", name)
	return Source{}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadRegistry_Default(t *testing.T) {
	t.Parallel()

	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	names := make([]string, 0, len(reg.Sources))
	for _, src := range reg.Sources {
		names = append(names, src.Name)
	}
	if got := strings.Join(names, ","); got != "NYPD,LAPD,UNIFIED,ADL,FBI" {
		t.Fatalf("unexpected sources: %s", got)
	}
	if reg.Sources[3].Origin().Tier != incident.TierAdvocacy {
		t.Fatalf("expected ADL advocacy tier, got %q", reg.Sources[3].Origin().Tier)
	}
	if reg.Sources[2].Origin().Tier != "" {
		t.Fatalf("expected UNIFIED tier to be resolved per row")
	}
}

func TestParseRegistry_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":          "sources: []",
		"unknown field":  "sources:\n  - name: X\n    files: [x.csv]\n    fields:\n      headline: [title]\n",
		"source mapped":  "sources:\n  - name: X\n    files: [x.csv]\n    fields:\n      source: [org]\n",
		"bad tier":       "sources:\n  - name: X\n    tier: tabloid\n    files: [x.csv]\n",
		"no files":       "sources:\n  - name: X\n",
		"escaping path":  "sources:\n  - name: X\n    files: [../x.csv]\n",
		"duplicate name": "sources:\n  - name: X\n    files: [a.csv]\n  - name: x\n    files: [b.csv]\n",
		"bad format":     "sources:\n  - name: X\n    format: xml\n    files: [a.xml]\n",
		"flat template":  "sources:\n  - name: X\n    files: [a.csv]\n    templates:\n      incident_id: constant\n",
	}
	for name, doc := range tests {
		if _, err := ParseRegistry([]byte(doc)); err == nil {
			t.Fatalf("%s: expected registry error", name)
		}
	}
}

func TestAdapt_NYPDColumnsAndDefaults(t *testing.T) {
	t.Parallel()

	row := defaultSource(t, "NYPD").Adapt(map[string]any{
		"RECORD CREATE DATE":      "10/12/2023",
		"County":                  "KINGS",
		"Bias Motive Description": "ANTI-JEWISH",
		"Full Complaint ID":       "202309012345",
		"Offense Category":        "",
		"Offense Description":     "CRIMINAL MISCHIEF",
		"Unrelated":               "x",
	})

	if row[normalize.FieldDate] != "10/12/2023" || row[normalize.FieldCounty] != "KINGS" {
		t.Fatalf("unexpected mapped fields: %v", row)
	}
	if row[normalize.FieldCity] != "New York" || row[normalize.FieldState] != "NY" {
		t.Fatalf("expected defaults applied, got %v", row)
	}
	if _, ok := row[normalize.FieldOffenseType]; ok {
		t.Fatalf("blank column should not be mapped: %v", row)
	}
	if row[normalize.FieldSource] != "NYPD" {
		t.Fatalf("expected source NYPD, got %v", row[normalize.FieldSource])
	}
	if _, ok := row["Unrelated"]; ok {
		t.Fatalf("unmapped column leaked into row")
	}
}

func TestAdapt_DefaultsDoNotOverrideValues(t *testing.T) {
	t.Parallel()

	row := defaultSource(t, "LAPD").Adapt(map[string]any{"city": "Pasadena"})
	// LAPD maps no city column, so the default still applies.
	if row[normalize.FieldCity] != "Los Angeles" {
		t.Fatalf("expected default city, got %v", row[normalize.FieldCity])
	}

	src := Source{Name: "X", Fields: map[string][]string{"city": {"city"}}, Defaults: map[string]string{"city": "Fallback"}}
	if got := src.Adapt(map[string]any{"city": "Pasadena"})[normalize.FieldCity]; got != "Pasadena" {
		t.Fatalf("expected mapped city to win, got %v", got)
	}
	if got := src.Adapt(map[string]any{"city": "  "})[normalize.FieldCity]; got != "Fallback" {
		t.Fatalf("expected default for blank city, got %v", got)
	}
}

func TestAdapt_FBITemplates(t *testing.T) {
	t.Parallel()

	src := defaultSource(t, "FBI")
	row := src.Adapt(map[string]any{
		"date":            "2023-03-01",
		"month_year":      "03-2023",
		"state":           "TX",
		"state_name":      "Texas",
		"incident_count":  "41",
		"bias_motivation": "ALL_HATE_CRIMES",
	})
	if row[normalize.FieldIncidentID] != "TX_03-2023_FBI" {
		t.Fatalf("unexpected incident id: %v", row[normalize.FieldIncidentID])
	}
	if row[normalize.FieldDescription] != "Monthly FBI hate crime total for Texas" {
		t.Fatalf("unexpected description: %v", row[normalize.FieldDescription])
	}
	if row[normalize.FieldOffenseType] != "HATE_CRIME_MONTHLY_TOTAL" || row[normalize.FieldVictimType] != "ALL" {
		t.Fatalf("unexpected constant fields: %v", row)
	}

	partial := src.Adapt(map[string]any{"state": "TX"})
	if _, ok := partial[normalize.FieldIncidentID]; ok {
		t.Fatalf("template with missing column should not render: %v", partial)
	}
}

func TestAdapt_SourceField(t *testing.T) {
	t.Parallel()

	src := defaultSource(t, "UNIFIED")
	if got := src.Adapt(map[string]any{"source": "LAPD"})[normalize.FieldSource]; got != "LAPD" {
		t.Fatalf("expected per-row source, got %v", got)
	}
	if got := src.Adapt(map[string]any{"source": ""})[normalize.FieldSource]; got != "UNIFIED" {
		t.Fatalf("expected registry name fallback, got %v", got)
	}
}

func TestReadTable_CSVWithBOM(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "t.csv", "\ufeffdate , state\n2023-01-01,NY\n2023-01-02\n")

	rows, err := ReadTable(filepath.Join(dir, "t.csv"), "")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["date"] != "2023-01-01" || rows[0]["state"] != "NY" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if _, ok := rows[1]["state"]; ok {
		t.Fatalf("short row should leave state absent: %v", rows[1])
	}
}

func TestReadTable_JSONShapes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "array.json", `[{"id": 1}, {"id": 2}]`)
	writeFile(t, dir, "wrapped.json", `{"meta": {}, "results": [{"id": 1}]}`)
	writeFile(t, dir, "single.json", `{"id": 7, "date": "2023-05-01"}`)
	writeFile(t, dir, "scalar.json", `[1, 2]`)
	writeFile(t, dir, "trailing.json", `[] []`)

	tests := []struct {
		file    string
		rows    int
		wantErr bool
	}{
		{file: "array.json", rows: 2},
		{file: "wrapped.json", rows: 1},
		{file: "single.json", rows: 1},
		{file: "scalar.json", wantErr: true},
		{file: "trailing.json", wantErr: true},
	}
	for _, tt := range tests {
		rows, err := ReadTable(filepath.Join(dir, tt.file), "")
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.file)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		if len(rows) != tt.rows {
			t.Fatalf("%s: expected %d rows, got %d", tt.file, tt.rows, len(rows))
		}
	}
}

func TestLoader_LoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "nypd_hate_crimes.csv",
		"Record Create Date,County,Bias Motive Description,Full Complaint ID\n"+
			"10/12/2023,KINGS,ANTI-JEWISH,1\n"+
			"10/13/2023,QUEENS,ANTI-ASIAN,2\n")
	writeFile(t, dir, "adl/incidents.json",
		`{"incidents": [
			{"date": "2023-10-12", "state": "New York", "category": "Antisemitic vandalism", "id": 9},
			{"date": "2023-10-14", "city": {"name": "nested"}}
		]}`)
	writeFile(t, dir, "fbi/fbi_hate_crimes_2023.csv", "date,state\n")

	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	batches, err := NewLoader(dir, reg, zerolog.Nop()).LoadAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	got := make(map[string]Batch, len(batches))
	for _, b := range batches {
		got[b.Source] = b
	}

	if nypd := got["NYPD"]; len(nypd.Rows) != 2 || nypd.Err != nil {
		t.Fatalf("unexpected NYPD batch: rows=%d err=%v", len(nypd.Rows), nypd.Err)
	}
	adl := got["ADL"]
	if len(adl.Rows) != 1 || adl.Rejected != 1 || adl.Read != 2 || len(adl.RowErrors) != 1 {
		t.Fatalf("unexpected ADL batch: rows=%d rejected=%d read=%d", len(adl.Rows), adl.Rejected, adl.Read)
	}
	if adl.Rows[0][normalize.FieldSource] != "ADL" {
		t.Fatalf("expected ADL source on adapted row")
	}
	if lapd := got["LAPD"]; len(lapd.Files) != 0 || lapd.Err != nil {
		t.Fatalf("expected missing LAPD file to be skipped, got %+v", lapd)
	}
	if fbi := got["FBI"]; len(fbi.Files) != 1 || len(fbi.Rows) != 0 || fbi.Err != nil {
		t.Fatalf("expected empty FBI batch without error, got %+v", fbi)
	}
	if unified := got["UNIFIED"]; len(unified.Files) != 0 || unified.Err != nil {
		t.Fatalf("expected missing unified file to be skipped, got %+v", unified)
	}
}

func TestLoader_MalformedFileSkipsOnlyThatFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "adl/a.json", `[{"date": "2023-10-12", "state": "NY"}]`)
	writeFile(t, dir, "adl/b.json", `{"incidents": [`)

	reg, err := ParseRegistry([]byte("sources:\n  - name: ADL\n    tier: advocacy\n    files: [adl/*.json]\n    fields:\n      date: [date]\n      state: [state]\n"))
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	batch := NewLoader(dir, reg, zerolog.Nop()).Load(reg.Sources[0])
	if batch.Err == nil || !strings.Contains(batch.Err.Error(), "b.json") {
		t.Fatalf("expected file-level error naming b.json, got %v", batch.Err)
	}
	if len(batch.Rows) != 1 || batch.Read != 1 {
		t.Fatalf("expected the row from a.json to survive, got rows=%d read=%d", len(batch.Rows), batch.Read)
	}
	if len(batch.Files) != 2 {
		t.Fatalf("expected both files resolved, got %v", batch.Files)
	}
}

func TestLoader_FieldProblemsKeepRow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "adl/incidents.json", `[
		{"date": 20231012, "state": "NY", "category": "Antisemitic graffiti"},
		{"date": "2023-10-13", "state": "NY", "latitude": 123.4, "longitude": -73.9},
		{"date": "2023-10-14", "state": "NY", "summary": 42},
		{"date": "2023-10-15", "state": "NY", "summary": "Clean row"}
	]`)

	batch := NewLoader(dir, nil, zerolog.Nop()).Load(defaultSource(t, "ADL"))
	if batch.Err != nil || batch.Read != 4 || batch.Rejected != 0 || len(batch.Rows) != 4 {
		t.Fatalf("expected all rows kept, got read=%d rows=%d rejected=%d err=%v errors=%v",
			batch.Read, len(batch.Rows), batch.Rejected, batch.Err, batch.RowErrors)
	}

	records := normalize.Rows(batch.Origin, batch.Rows, zerolog.Nop()).Records
	if records[0].HasDate() {
		t.Fatalf("expected numeric date to degrade to unknown, got %s", records[0].DateString())
	}
	if records[0].BiasMotivationCleaned != incident.BiasAntiJewish {
		t.Fatalf("expected undated row to keep its other fields, got %+v", records[0])
	}
	if records[1].Coordinates != nil || !records[1].HasDate() {
		t.Fatalf("expected out-of-range latitude to degrade to unknown coordinates, got %+v", records[1])
	}
	if records[2].Description != "42" {
		t.Fatalf("expected numeric summary rendered as text, got %q", records[2].Description)
	}
}

func TestLoader_SelectSources(t *testing.T) {
	t.Parallel()

	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	loader := NewLoader(t.TempDir(), reg, zerolog.Nop())

	batches, err := loader.LoadAll(context.Background(), []string{"adl", " fbi "})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(batches) != 2 || batches[0].Source != "ADL" || batches[1].Source != "FBI" {
		t.Fatalf("unexpected selection: %+v", batches)
	}
	if _, err := loader.LoadAll(context.Background(), []string{"CNN"}); err == nil {
		t.Fatalf("expected unknown source error")
	}
}
