package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/incident-integrator/internal/cli"
	"horse.fit/incident-integrator/internal/sources"
)

type validateResult struct {
	Sources int
	Read    int
	Valid   int
	Invalid int
	Failed  int
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dataDir := fs.String("data-dir", "", "Directory holding source tables (default INTEGRATOR_DATA_DIR)")
	sourcesFile := fs.String("sources", "", "Source registry YAML (default: embedded registry)")
	only := fs.String("only", "", "Comma separated source names to check (default: all)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}

	registry, err := sources.LoadRegistry(firstNonEmpty(*sourcesFile, cfg.SourcesFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
		return 1
	}

	dir := firstNonEmpty(*dataDir, cfg.DataDir)
	batches, err := sources.NewLoader(dir, registry, logger).LoadAll(context.Background(), splitList(*only))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
		return 1
	}

	result := summarizeBatches(batches)
	fmt.Printf(
		"validate sources=%d read=%d valid=%d invalid=%d failed_sources=%d dir=%s\n",
		result.Sources,
		result.Read,
		result.Valid,
		result.Invalid,
		result.Failed,
		dir,
	)

	if result.Valid == 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: no valid rows found under %s\n", dir)
		return 1
	}
	if result.Invalid > 0 || result.Failed > 0 {
		return 1
	}
	return 0
}

// summarizeBatches prints every recorded problem to stderr and totals
// the batches.
func summarizeBatches(batches []sources.Batch) validateResult {
	result := validateResult{Sources: len(batches)}
	for _, batch := range batches {
		result.Read += batch.Read
		result.Valid += len(batch.Rows)
		result.Invalid += batch.Rejected
		if batch.Err != nil {
			result.Failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", batch.Source, batch.Err)
		}
		for _, rowErr := range batch.RowErrors {
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", batch.Source, rowErr)
		}
		if hidden := batch.Rejected - len(batch.RowErrors); hidden > 0 {
			fmt.Fprintf(os.Stderr, "INVALID %s: %d more rows not shown\n", batch.Source, hidden)
		}
	}
	return result
}
