package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/incident-integrator/internal/incident"
)

// ErrNoData is returned when there are no records to integrate.
var ErrNoData = errors.New("no data to integrate")

type Options struct {
	// Workers > 1 evaluates candidate windows concurrently. Resolution
	// stays sequential so output does not depend on the worker count.
	Workers    int
	Similarity Similarity
}

type Result struct {
	Kept        []incident.Record
	Removals    []Removal
	Comparisons int
	Undated     int
}

type Engine struct {
	matcher *Matcher
	workers int
	logger  zerolog.Logger
}

func NewEngine(opts Options, logger zerolog.Logger) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		matcher: NewMatcher(opts.Similarity),
		workers: workers,
		logger:  logger,
	}
}

// Run removes cross-source and intra-source duplicates. Each anchor is
// compared with every later alive record in its window; the first
// duplicate found that removes the anchor ends the anchor's scan.
func (e *Engine) Run(ctx context.Context, records []incident.Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoData
	}

	index := NewIndex(records)
	var verdicts [][]Verdict
	if e.workers > 1 && index.Len() > 1 {
		var err error
		verdicts, err = e.precompute(ctx, index)
		if err != nil {
			return Result{}, err
		}
	}

	sel := newSelector(index)
	comparisons := 0
	for anchor := 0; anchor < index.Len(); anchor++ {
		if anchor%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf("dedup canceled: %w", err)
			}
		}
		if !sel.isAlive(anchor) {
			continue
		}
		start, end := index.Window(anchor)
		for candidate := start; candidate < end; candidate++ {
			if !sel.isAlive(candidate) {
				continue
			}
			comparisons++

			var verdict Verdict
			if verdicts != nil {
				verdict = verdicts[anchor][candidate-start]
			} else {
				verdict = e.matcher.Evaluate(index.Record(anchor), index.Record(candidate))
			}
			if !verdict.Duplicate {
				continue
			}
			if sel.resolve(anchor, candidate, verdict.Rule) {
				break
			}
		}
	}

	result := Result{
		Kept:        sel.kept(),
		Removals:    sel.removals,
		Comparisons: comparisons,
		Undated:     len(index.Undated()),
	}
	e.logger.Info().
		Int("records", len(records)).
		Int("undated", result.Undated).
		Int("comparisons", result.Comparisons).
		Int("removed", len(result.Removals)).
		Int("kept", len(result.Kept)).
		Int("workers", e.workers).
		Msg("dedup finished")
	return result, nil
}

// precompute evaluates every in-window pair up front. Verdicts are pure
// functions of the two records, so liveness is applied later.
func (e *Engine) precompute(ctx context.Context, index *Index) ([][]Verdict, error) {
	verdicts := make([][]Verdict, index.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for anchor := 0; anchor < index.Len(); anchor++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start, end := index.Window(anchor)
			row := make([]Verdict, end-start)
			a := index.Record(anchor)
			for candidate := start; candidate < end; candidate++ {
				row[candidate-start] = e.matcher.Evaluate(a, index.Record(candidate))
			}
			verdicts[anchor] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate candidate windows: %w", err)
	}
	return verdicts, nil
}
