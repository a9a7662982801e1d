package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"horse.fit/incident-integrator/internal/config"
	"horse.fit/incident-integrator/internal/incident"
)

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		env   string
		want  logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "INFO", want: logger.Warn},
		{level: "error", want: logger.Error},
		{level: "disabled", want: logger.Silent},
		{level: "odd", env: "local", want: logger.Warn},
		{level: "odd", env: "production", want: logger.Error},
	}
	for _, tt := range tests {
		if got := resolveGormLogLevel(tt.level, tt.env); got != tt.want {
			t.Fatalf("resolveGormLogLevel(%q, %q)=%v want %v", tt.level, tt.env, got, tt.want)
		}
	}
}

func TestIncidentRow(t *testing.T) {
	t.Parallel()

	d := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)
	rec := incident.Record{
		Date:                  &d,
		State:                 "NY",
		Coordinates:           &incident.Coordinates{Lat: 40.7, Lon: -74},
		BiasMotivationCleaned: incident.BiasAntiJewish,
		Source:                "ADL",
		Tier:                  incident.TierAdvocacy,
		IncidentID:            "adl-1",
		IncidentsCorrected:    1.45,
	}

	row := incidentRow(7, 3, rec)
	if row.RunID != 7 || row.Position != 3 || row.SourceIncidentID != "adl-1" || row.Tier != "advocacy" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Latitude == nil || *row.Latitude != 40.7 || row.Longitude == nil || *row.Longitude != -74 {
		t.Fatalf("unexpected coordinates: %v %v", row.Latitude, row.Longitude)
	}

	rec.Coordinates = nil
	if row := incidentRow(7, 4, rec); row.Latitude != nil || row.Longitude != nil {
		t.Fatalf("expected NULL coordinates for unknown location")
	}
}

func TestTableNames(t *testing.T) {
	t.Parallel()

	for _, model := range autoMigrateModels() {
		named, ok := model.(interface{ TableName() string })
		if !ok || !strings.HasPrefix(named.TableName(), "integration.") {
			t.Fatalf("model %T is not in the integration schema", model)
		}
	}
}

func TestNewPool_RequiresDatabaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewPool(context.Background(), &config.Config{DBMaxConns: 1})
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}
