package sources

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
)

var wrapperKeys = []string{"incidents", "data", "results", "items"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable reads a CSV or JSON table into loosely typed rows.
func ReadTable(path, format string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if format == "" {
		format = formatForPath(path)
	}
	switch format {
	case FormatJSON:
		return readJSON(raw)
	default:
		return readCSV(raw)
	}
}

func formatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

func readCSV(raw []byte) ([]map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]any, len(header))
		for i, name := range header {
			if name == "" || i >= len(record) {
				continue
			}
			row[name] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readJSON accepts an array of objects, an object wrapping such an array
// under one of wrapperKeys, or a single object.
func readJSON(raw []byte) ([]map[string]any, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode json table: %w", err)
	}

	switch typed := value.(type) {
	case []any:
		return objectRows(typed)
	case map[string]any:
		for _, key := range wrapperKeys {
			if items, ok := typed[key].([]any); ok {
				return objectRows(items)
			}
		}
		return []map[string]any{typed}, nil
	default:
		return nil, fmt.Errorf("json table must be an array or object, got %T", value)
	}
}

func objectRows(items []any) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("file contains trailing content")
	}
	return value, nil
}
