package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

func autoMigrateModels() []any {
	return []any{
		&IntegrationRun{},
		&IntegratedIncident{},
	}
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if sqlText := strings.TrimSpace(preAutoMigrateSQL); sqlText != "" {
		if err := p.gdb.WithContext(ctx).Exec(sqlText).Error; err != nil {
			return fmt.Errorf("execute pre-auto-migrate SQL: %w", err)
		}
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}
	return nil
}
