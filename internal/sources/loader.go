package sources

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/normalize"
	rowschema "horse.fit/incident-integrator/schema"
)

const maxReportedRowErrors = 20

// Batch is everything loaded for one registry source.
type Batch struct {
	Source   string
	Origin   normalize.Origin
	Files    []string
	Rows     []normalize.Row
	Read     int
	Rejected int
	// Err joins file-level failures. A malformed file contributes no rows;
	// rows from its sibling files are kept.
	Err       error
	RowErrors []RowError
}

type RowError struct {
	File string
	Row  int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

type Loader struct {
	dataDir  string
	registry *Registry
	logger   zerolog.Logger
}

func NewLoader(dataDir string, registry *Registry, logger zerolog.Logger) *Loader {
	return &Loader{dataDir: dataDir, registry: registry, logger: logger}
}

// LoadAll loads every registry source, or only the named ones when names
// is non-empty. Source problems are recorded on the batch, never returned.
func (l *Loader) LoadAll(ctx context.Context, names []string) ([]Batch, error) {
	selected, err := l.selectSources(names)
	if err != nil {
		return nil, err
	}

	batches := make([]Batch, 0, len(selected))
	for _, src := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batches = append(batches, l.Load(src))
	}
	return batches, nil
}

func (l *Loader) selectSources(names []string) ([]Source, error) {
	if len(names) == 0 {
		return l.registry.Sources, nil
	}
	byName := make(map[string]Source, len(l.registry.Sources))
	for _, src := range l.registry.Sources {
		byName[strings.ToUpper(src.Name)] = src
	}
	selected := make([]Source, 0, len(names))
	for _, name := range names {
		src, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

// Load reads, adapts and validates every table of one source.
func (l *Loader) Load(src Source) Batch {
	batch := Batch{Source: src.Name, Origin: src.Origin()}
	logger := l.logger.With().Str("source", src.Name).Logger()

	files, err := l.resolveFiles(src)
	if err != nil {
		batch.Err = err
		logger.Error().Err(err).Msg("resolve source files failed")
		return batch
	}
	batch.Files = files
	if len(files) == 0 {
		logger.Warn().Strs("patterns", src.Files).Msg("no files found for source; continuing without it")
		return batch
	}

	for _, path := range files {
		rows, err := ReadTable(path, strings.ToLower(strings.TrimSpace(src.Format)))
		if err != nil {
			batch.Err = errors.Join(batch.Err, fmt.Errorf("read %s: %w", path, err))
			logger.Error().Err(err).Str("file", path).Msg("malformed source file; file skipped")
			continue
		}
		for i, raw := range rows {
			batch.Read++
			row := src.Adapt(raw)
			if err := rowschema.ValidateRow(map[string]any(row)); err != nil {
				batch.Rejected++
				if len(batch.RowErrors) < maxReportedRowErrors {
					batch.RowErrors = append(batch.RowErrors, RowError{File: path, Row: i + 1, Err: err})
				}
				logger.Warn().Err(err).Str("file", path).Int("row", i+1).Msg("row failed schema validation; dropped")
				continue
			}
			batch.Rows = append(batch.Rows, row)
		}
	}

	if len(batch.Rows) == 0 {
		logger.Warn().Int("read", batch.Read).Int("rejected", batch.Rejected).Msg("source produced zero rows")
	} else {
		logger.Info().
			Int("files", len(files)).
			Int("rows", len(batch.Rows)).
			Int("rejected", batch.Rejected).
			Msg("source loaded")
	}
	return batch
}

func (l *Loader) resolveFiles(src Source) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range src.Files {
		matches, err := filepath.Glob(filepath.Join(l.dataDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, match)
		}
	}
	return files, nil
}
