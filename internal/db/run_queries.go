package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"horse.fit/incident-integrator/internal/incident"
	"horse.fit/incident-integrator/internal/report"
)

const incidentInsertBatch = 500

var ErrNoRuns = errors.New("no integration runs stored")

// SaveRun stores the report and every kept record in one transaction and
// returns the new run id.
func (p *Pool) SaveRun(ctx context.Context, r report.Report, records []incident.Record) (int64, error) {
	if p == nil || p.gdb == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}

	doc, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}

	run := IntegrationRun{
		RunUUID:           r.RunID,
		IntegratedAt:      r.IntegrationTimestamp,
		TotalBeforeDedup:  r.SourceStatistics.TotalBeforeDedup,
		FinalIncidents:    r.SourceStatistics.FinalIncidents,
		DuplicatesRemoved: r.SourceStatistics.DuplicatesRemoved,
		Comparisons:       r.SourceStatistics.Comparisons,
		Report:            doc,
	}

	err = p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]IntegratedIncident, 0, len(records))
		for i, rec := range records {
			rows = append(rows, incidentRow(run.RunID, i, rec))
		}
		if err := tx.CreateInBatches(rows, incidentInsertBatch).Error; err != nil {
			return fmt.Errorf("insert incidents: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return run.RunID, nil
}

// LatestRun returns the most recently stored run.
func (p *Pool) LatestRun(ctx context.Context) (*IntegrationRun, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	var run IntegrationRun
	err := p.gdb.WithContext(ctx).Order("run_id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return &run, nil
}
