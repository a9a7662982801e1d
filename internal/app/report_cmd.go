package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"horse.fit/incident-integrator/internal/cli"
	"horse.fit/incident-integrator/internal/config"
	"horse.fit/incident-integrator/internal/db"
	"horse.fit/incident-integrator/internal/export"
	"horse.fit/incident-integrator/internal/report"
)

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	outputDir := fs.String("output-dir", "", "Directory holding integration outputs (default INTEGRATOR_OUTPUT_DIR)")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")
	fromDB := fs.Bool("from-db", false, "Read the latest stored run instead of the output directory")
	timeout := fs.Duration("timeout", 10*time.Second, "Database query timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	if *fromDB && !cfg.PersistenceEnabled() {
		fmt.Fprintln(os.Stderr, "--from-db requires DATABASE_URL")
		return 2
	}

	var rep report.Report
	if *fromDB {
		rep, err = latestStoredReport(cfg, *timeout)
	} else {
		rep, err = export.LoadReport(firstNonEmpty(*outputDir, cfg.OutputDir))
	}
	if err != nil {
		logger.Error().Err(err).Bool("from_db", *fromDB).Msg("report load failed")
		fmt.Fprintf(os.Stderr, "Failed to load report: %v\n", err)
		return 1
	}

	if format == outputFormatJSON {
		if err := printJSON(rep); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON output: %v\n", err)
			return 1
		}
		return 0
	}

	renderReport(rep)
	return 0
}

func latestStoredReport(cfg *config.Config, timeout time.Duration) (report.Report, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return report.Report{}, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	run, err := pool.LatestRun(ctx)
	if err != nil {
		return report.Report{}, err
	}
	var rep report.Report
	if err := json.Unmarshal(run.Report, &rep); err != nil {
		return report.Report{}, fmt.Errorf("decode stored report for run %d: %w", run.RunID, err)
	}
	return rep, nil
}

func renderReport(rep report.Report) {
	stats := rep.SourceStatistics
	fmt.Printf("Run %s at %s\n", rep.RunID, rep.IntegrationTimestamp.Format(time.RFC3339))

	summary := newTable("Summary", table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"Total before dedup", stats.TotalBeforeDedup},
		{"Final incidents", stats.FinalIncidents},
		{"Duplicates removed", stats.DuplicatesRemoved},
		{"Undated records", stats.UndatedRecords},
		{"Comparisons", stats.Comparisons},
	})
	for _, reason := range report.Ranked(stats.RemovalReasons) {
		summary.AppendRow(table.Row{"Removed by " + reason, stats.RemovalReasons[reason]})
	}
	summary.Render()

	inputs := newTable("Source inputs", table.Row{"Source", "Input rows", "Rejected", "Final"})
	for _, source := range report.Ranked(stats.InputRows) {
		inputs.AppendRow(table.Row{source, stats.InputRows[source], stats.RejectedRows[source], rep.SourceCounts[source]})
	}
	inputs.Render()

	renderCounts("Incidents by source", "Source", rep.SourceCounts, report.Ranked(rep.SourceCounts))
	renderCounts("Incidents by bias", "Bias", rep.BiasCounts, report.Ranked(rep.BiasCounts))
	renderCounts("Incidents by year", "Year", rep.TemporalCoverage, rep.Years())
	renderCounts("Incidents by state", "State", rep.GeographicCoverage, report.Ranked(rep.GeographicCoverage))

	q := rep.DataQualityMetrics
	quality := newTable("Data quality", table.Row{"Metric", "Value"})
	quality.AppendRows([]table.Row{
		{"With coordinates", q.IncidentsWithCoordinates},
		{"With descriptions", q.IncidentsWithDescriptions},
		{"Verified", q.VerifiedIncidents},
		{"Antisemitic", q.AntisemiticIncidents},
		{"Completeness", formatPercent(q.CompletenessScore)},
	})
	quality.Render()
}
