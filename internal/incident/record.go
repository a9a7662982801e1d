package incident

import (
	"strings"
	"time"
)

// DateLayout is the canonical MM/DD/YYYY rendering of an incident date.
const DateLayout = "01/02/2006"

const (
	BiasUnknown       = "UNKNOWN"
	BiasAntiJewish    = "ANTI-JEWISH"
	BiasAntiIslamic   = "ANTI-ISLAMIC"
	BiasAntiBlack     = "ANTI-BLACK"
	BiasAntiHispanic  = "ANTI-HISPANIC"
	BiasAntiAsian     = "ANTI-ASIAN"
	BiasAntiWhite     = "ANTI-WHITE"
	BiasAntiLGBTQ     = "ANTI-LGBTQ"
	BiasAntiChristian = "ANTI-CHRISTIAN"
)

// Coordinates is a WGS-84 point. A record either has both values or none.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Record is the canonical incident shape shared by every source.
type Record struct {
	Date                  *time.Time
	State                 string
	County                string
	City                  string
	Coordinates           *Coordinates
	BiasMotivationRaw     string
	BiasMotivationCleaned string
	Source                string
	Tier                  Tier
	IncidentID            string
	OffenseType           string
	VictimType            string
	Description           string
	Verified              bool
	IncidentsCorrected    float64
}

// HasDate reports whether the incident date is known.
func (r Record) HasDate() bool {
	return r.Date != nil && !r.Date.IsZero()
}

// DateString renders the date as MM/DD/YYYY, or "" when unknown.
func (r Record) DateString() string {
	if !r.HasDate() {
		return ""
	}
	return r.Date.UTC().Format(DateLayout)
}

// Year returns the calendar year of the incident, or 0 when unknown.
func (r Record) Year() int {
	if !r.HasDate() {
		return 0
	}
	return r.Date.UTC().Year()
}

func (r Record) BiasKnown() bool {
	return r.BiasMotivationCleaned != "" && r.BiasMotivationCleaned != BiasUnknown
}

// Location is the "{city} {county}" string used for place-name matching.
func (r Record) Location() string {
	return strings.TrimSpace(r.City + " " + r.County)
}
