package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/incident"
)

// Canonical raw-row keys produced by the source adapters.
const (
	FieldDate           = "date"
	FieldState          = "state"
	FieldLocation       = "location"
	FieldCounty         = "county"
	FieldCity           = "city"
	FieldLatitude       = "latitude"
	FieldLongitude      = "longitude"
	FieldBiasMotivation = "bias_motivation"
	FieldSource         = "source"
	FieldIncidentID     = "incident_id"
	FieldOffenseType    = "offense_type"
	FieldVictimType     = "victim_type"
	FieldDescription    = "description"
	FieldVerified       = "verified"
)

// Fields lists every canonical raw-row key.
var Fields = []string{
	FieldDate, FieldState, FieldLocation, FieldCounty, FieldCity,
	FieldLatitude, FieldLongitude, FieldBiasMotivation, FieldSource,
	FieldIncidentID, FieldOffenseType, FieldVictimType, FieldDescription,
	FieldVerified,
}

// Row is one adapted raw row keyed by canonical field names.
type Row map[string]any

// Origin identifies the source a batch of rows came from.
type Origin struct {
	Source string
	Tier   incident.Tier
}

type Result struct {
	Records []incident.Record
	Undated int
}

// Rows converts adapted rows into canonical records. Per-row problems
// (bad dates, bad coordinates) degrade fields to unknown and never fail.
func Rows(origin Origin, rows []Row, logger zerolog.Logger) Result {
	result := Result{Records: make([]incident.Record, 0, len(rows))}
	for i, row := range rows {
		rec := FromRow(origin, row)
		if !rec.HasDate() {
			result.Undated++
			if raw := row.String(FieldDate); raw != "" {
				logger.Debug().
					Str("source", rec.Source).
					Int("row", i).
					Str("date", raw).
					Msg("unparseable incident date; record excluded from dedup")
			}
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

// FromRow builds one canonical record.
func FromRow(origin Origin, row Row) incident.Record {
	source := strings.TrimSpace(row.String(FieldSource))
	if source == "" {
		source = origin.Source
	}
	tier := origin.Tier
	if tier == "" {
		tier = incident.TierForSource(source)
	}

	rec := incident.Record{
		State:             NormalizeState(row.String(FieldState), row.String(FieldLocation)),
		County:            row.String(FieldCounty),
		City:              row.String(FieldCity),
		Coordinates:       parseCoordinates(row[FieldLatitude], row[FieldLongitude]),
		BiasMotivationRaw: row.String(FieldBiasMotivation),
		Source:            source,
		Tier:              tier,
		IncidentID:        row.String(FieldIncidentID),
		OffenseType:       row.String(FieldOffenseType),
		VictimType:        row.String(FieldVictimType),
		Description:       row.String(FieldDescription),
		Verified:          parseBool(row[FieldVerified]),
	}
	if d, ok := ParseDate(row.String(FieldDate)); ok {
		rec.Date = &d
	}
	rec.BiasMotivationCleaned = ClassifyBias(rec.BiasMotivationRaw)
	rec.IncidentsCorrected = CorrectionWeight(rec.Tier, rec.BiasMotivationCleaned)
	return rec
}

// String returns the trimmed string form of a field, or "".
func (r Row) String(key string) string {
	return Text(r[key])
}

// Text renders a scalar cell value as trimmed text; nil becomes "".
func Text(v any) string {
	return strings.TrimSpace(stringValue(v))
}

func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}

// parseCoordinates requires both values to parse and be non-zero; a zero
// component is how several feeds encode a missing point.
func parseCoordinates(latRaw, lonRaw any) *incident.Coordinates {
	lat, ok := parseFloat(latRaw)
	if !ok || lat == 0 || lat < -90 || lat > 90 {
		return nil
	}
	lon, ok := parseFloat(lonRaw)
	if !ok || lon == 0 || lon < -180 || lon > 180 {
		return nil
	}
	return &incident.Coordinates{Lat: lat, Lon: lon}
}

func parseFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	case int:
		return float64(value), true
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func parseBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "t", "yes", "y", "1":
			return true
		}
	case json.Number:
		return value.String() == "1"
	case float64:
		return value == 1
	}
	return false
}
