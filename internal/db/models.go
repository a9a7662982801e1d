package db

import (
	"encoding/json"
	"time"

	"horse.fit/incident-integrator/internal/incident"
)

// IntegrationRun maps integration.runs.
type IntegrationRun struct {
	RunID             int64           `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID           string          `gorm:"column:run_uuid;type:uuid;not null;unique"`
	IntegratedAt      time.Time       `gorm:"column:integrated_at;type:timestamptz;not null"`
	TotalBeforeDedup  int             `gorm:"column:total_before_dedup;type:integer;not null"`
	FinalIncidents    int             `gorm:"column:final_incidents;type:integer;not null"`
	DuplicatesRemoved int             `gorm:"column:duplicates_removed;type:integer;not null"`
	Comparisons       int             `gorm:"column:comparisons;type:integer;not null"`
	Report            json.RawMessage `gorm:"column:report;type:jsonb;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (IntegrationRun) TableName() string { return "integration.runs" }

// IntegratedIncident maps integration.incidents; one row per kept record.
type IntegratedIncident struct {
	IncidentRowID         int64      `gorm:"column:incident_row_id;primaryKey;autoIncrement"`
	RunID                 int64      `gorm:"column:run_id;type:bigint;not null;index:idx_incidents_run_position,priority:1"`
	Position              int        `gorm:"column:position;type:integer;not null;index:idx_incidents_run_position,priority:2"`
	IncidentDate          *time.Time `gorm:"column:incident_date;type:date;index"`
	State                 string     `gorm:"column:state;type:text;not null;default:''"`
	County                string     `gorm:"column:county;type:text;not null;default:''"`
	City                  string     `gorm:"column:city;type:text;not null;default:''"`
	Latitude              *float64   `gorm:"column:latitude;type:double precision"`
	Longitude             *float64   `gorm:"column:longitude;type:double precision"`
	BiasMotivationRaw     string     `gorm:"column:bias_motivation_raw;type:text;not null;default:''"`
	BiasMotivationCleaned string     `gorm:"column:bias_motivation_cleaned;type:text;not null"`
	Source                string     `gorm:"column:source;type:text;not null"`
	Tier                  string     `gorm:"column:tier;type:text;not null"`
	SourceIncidentID      string     `gorm:"column:source_incident_id;type:text;not null;default:''"`
	OffenseType           string     `gorm:"column:offense_type;type:text;not null;default:''"`
	VictimType            string     `gorm:"column:victim_type;type:text;not null;default:''"`
	Description           string     `gorm:"column:description;type:text;not null;default:''"`
	Verified              bool       `gorm:"column:verified;not null;default:false"`
	IncidentsCorrected    float64    `gorm:"column:incidents_corrected;type:double precision;not null"`
}

func (IntegratedIncident) TableName() string { return "integration.incidents" }

func incidentRow(runID int64, position int, rec incident.Record) IntegratedIncident {
	row := IntegratedIncident{
		RunID:                 runID,
		Position:              position,
		IncidentDate:          rec.Date,
		State:                 rec.State,
		County:                rec.County,
		City:                  rec.City,
		BiasMotivationRaw:     rec.BiasMotivationRaw,
		BiasMotivationCleaned: rec.BiasMotivationCleaned,
		Source:                rec.Source,
		Tier:                  string(rec.Tier),
		SourceIncidentID:      rec.IncidentID,
		OffenseType:           rec.OffenseType,
		VictimType:            rec.VictimType,
		Description:           rec.Description,
		Verified:              rec.Verified,
		IncidentsCorrected:    rec.IncidentsCorrected,
	}
	if rec.Coordinates != nil {
		lat, lon := rec.Coordinates.Lat, rec.Coordinates.Lon
		row.Latitude, row.Longitude = &lat, &lon
	}
	return row
}
