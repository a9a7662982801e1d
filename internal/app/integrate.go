package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/cli"
	"horse.fit/incident-integrator/internal/db"
	"horse.fit/incident-integrator/internal/dedup"
	"horse.fit/incident-integrator/internal/export"
	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/normalize"
	"horse.fit/incident-integrator/internal/report"
	"horse.fit/incident-integrator/internal/sources"
)

type integrateOptions struct {
	DataDir     string
	OutputDir   string
	SourcesFile string
	Only        []string
	Workers     int
}

type integrateOutcome struct {
	Report        report.Report
	Records       []incident.Record
	IncidentsPath string
	ReportPath    string
}

func runIntegrate(args []string) int {
	fs := flag.NewFlagSet("integrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dataDir := fs.String("data-dir", "", "Directory holding source tables (default INTEGRATOR_DATA_DIR)")
	outputDir := fs.String("output-dir", "", "Directory for integrated outputs (default INTEGRATOR_OUTPUT_DIR)")
	sourcesFile := fs.String("sources", "", "Source registry YAML (default: embedded registry)")
	only := fs.String("only", "", "Comma separated source names to load (default: all)")
	workers := fs.Int("workers", 0, "Parallel verdict workers (default INTEGRATOR_WORKERS)")
	persist := fs.Bool("persist", false, "Store the run in PostgreSQL (requires DATABASE_URL)")
	timeout := fs.Duration("timeout", 60*time.Second, "Timeout for database persistence")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *workers < 0 {
		fmt.Fprintln(os.Stderr, "--workers must be >= 0")
		return 2
	}
	if *timeout <= 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be > 0")
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	if *persist && !cfg.PersistenceEnabled() {
		fmt.Fprintln(os.Stderr, "--persist requires DATABASE_URL")
		return 2
	}

	opts := integrateOptions{
		DataDir:     firstNonEmpty(*dataDir, cfg.DataDir),
		OutputDir:   firstNonEmpty(*outputDir, cfg.OutputDir),
		SourcesFile: firstNonEmpty(*sourcesFile, cfg.SourcesFile),
		Only:        splitList(*only),
		Workers:     cfg.Workers,
	}
	if *workers > 0 {
		opts.Workers = *workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	outcome, err := integrate(ctx, opts, logger)
	if err != nil {
		logger.Error().Err(err).Msg("integration failed")
		fmt.Fprintf(os.Stderr, "Integration failed: %v\n", err)
		return 1
	}

	runID := int64(0)
	if *persist {
		dbCtx, dbCancel := context.WithTimeout(ctx, *timeout)
		defer dbCancel()

		pool, err := db.NewPool(dbCtx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("integrate failed to connect to database")
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()

		runID, err = pool.SaveRun(dbCtx, outcome.Report, outcome.Records)
		if err != nil {
			logger.Error().Err(err).Str("run_uuid", outcome.Report.RunID).Msg("persist run failed")
			fmt.Fprintf(os.Stderr, "Persist failed: %v\n", err)
			return 1
		}
	}

	stats := outcome.Report.SourceStatistics
	fmt.Printf(
		"integrate run=%s before=%d final=%d removed=%d undated=%d comparisons=%d incidents=%s report=%s db_run=%d\n",
		outcome.Report.RunID,
		stats.TotalBeforeDedup,
		stats.FinalIncidents,
		stats.DuplicatesRemoved,
		stats.UndatedRecords,
		stats.Comparisons,
		outcome.IncidentsPath,
		outcome.ReportPath,
		runID,
	)
	return 0
}

// integrate runs load, normalize, dedup, report and export in order.
func integrate(ctx context.Context, opts integrateOptions, logger zerolog.Logger) (integrateOutcome, error) {
	registry, err := sources.LoadRegistry(opts.SourcesFile)
	if err != nil {
		return integrateOutcome{}, fmt.Errorf("load source registry: %w", err)
	}

	batches, err := sources.NewLoader(opts.DataDir, registry, logger).LoadAll(ctx, opts.Only)
	if err != nil {
		return integrateOutcome{}, fmt.Errorf("load sources: %w", err)
	}

	stats := report.RunStats{
		InputRows:      make(map[string]int, len(batches)),
		RejectedRows:   make(map[string]int, len(batches)),
		RemovalReasons: map[string]int{},
	}
	var records []incident.Record
	for _, batch := range batches {
		stats.InputRows[batch.Source] = batch.Read
		stats.RejectedRows[batch.Source] = batch.Rejected
		normalized := normalize.Rows(batch.Origin, batch.Rows, logger)
		records = append(records, normalized.Records...)
	}
	stats.TotalBeforeDedup = len(records)

	engine := dedup.NewEngine(dedup.Options{Workers: opts.Workers}, logger)
	result, err := engine.Run(ctx, records)
	if err != nil {
		return integrateOutcome{}, err
	}
	stats.Undated = result.Undated
	stats.Comparisons = result.Comparisons
	for _, removal := range result.Removals {
		stats.RemovalReasons[string(removal.Reason)]++
	}

	rep := report.Build(result.Kept, stats)
	incidentsPath, reportPath, err := export.Save(opts.OutputDir, result.Kept, rep)
	if err != nil {
		return integrateOutcome{}, fmt.Errorf("write outputs: %w", err)
	}

	logger.Info().
		Str("run_uuid", rep.RunID).
		Int("before", stats.TotalBeforeDedup).
		Int("final", len(result.Kept)).
		Str("output_dir", opts.OutputDir).
		Msg("integration complete")

	return integrateOutcome{
		Report:        rep,
		Records:       result.Kept,
		IncidentsPath: incidentsPath,
		ReportPath:    reportPath,
	}, nil
}
