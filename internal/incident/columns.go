package incident

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Columns is the exported table layout, in order.
var Columns = []string{
	"date",
	"state",
	"county",
	"city",
	"latitude",
	"longitude",
	"bias_motivation",
	"bias_motivation_cleaned",
	"source",
	"tier",
	"incident_id",
	"offense_type",
	"victim_type",
	"description",
	"verified",
	"incidents_corrected",
	"year",
}

// Cells renders the record as one exported row aligned with Columns.
func (r Record) Cells() []string {
	lat, lon := "", ""
	if r.Coordinates != nil {
		lat = formatFloat(r.Coordinates.Lat)
		lon = formatFloat(r.Coordinates.Lon)
	}
	year := ""
	if y := r.Year(); y != 0 {
		year = strconv.Itoa(y)
	}
	return []string{
		r.DateString(),
		r.State,
		r.County,
		r.City,
		lat,
		lon,
		r.BiasMotivationRaw,
		r.BiasMotivationCleaned,
		r.Source,
		string(r.Tier),
		r.IncidentID,
		r.OffenseType,
		r.VictimType,
		r.Description,
		strconv.FormatBool(r.Verified),
		formatFloat(r.IncidentsCorrected),
		year,
	}
}

// FromCells parses a row previously produced by Cells. header maps column
// names to positions; missing columns read as empty.
func FromCells(header map[string]int, cells []string) (Record, error) {
	get := func(name string) string {
		i, ok := header[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	rec := Record{
		State:                 get("state"),
		County:                get("county"),
		City:                  get("city"),
		BiasMotivationRaw:     get("bias_motivation"),
		BiasMotivationCleaned: get("bias_motivation_cleaned"),
		Source:                get("source"),
		Tier:                  Tier(get("tier")),
		IncidentID:            get("incident_id"),
		OffenseType:           get("offense_type"),
		VictimType:            get("victim_type"),
		Description:           get("description"),
		IncidentsCorrected:    1.0,
	}
	if rec.BiasMotivationCleaned == "" {
		rec.BiasMotivationCleaned = BiasUnknown
	}

	if raw := get("date"); raw != "" {
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return Record{}, fmt.Errorf("parse date %q: %w", raw, err)
		}
		rec.Date = &d
	}
	if latRaw, lonRaw := get("latitude"), get("longitude"); latRaw != "" && lonRaw != "" {
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse latitude %q: %w", latRaw, err)
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse longitude %q: %w", lonRaw, err)
		}
		rec.Coordinates = &Coordinates{Lat: lat, Lon: lon}
	}
	if raw := get("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			return Record{}, fmt.Errorf("parse verified %q: %w", raw, err)
		}
		rec.Verified = verified
	}
	if raw := get("incidents_corrected"); raw != "" {
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse incidents_corrected %q: %w", raw, err)
		}
		if weight <= 0 {
			return Record{}, fmt.Errorf("incidents_corrected must be positive, got %v", weight)
		}
		rec.IncidentsCorrected = weight
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
