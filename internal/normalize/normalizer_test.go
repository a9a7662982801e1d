package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/incident"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{name: "iso date", raw: "2023-03-15", ok: true},
		{name: "us date", raw: "03/15/2023", ok: true},
		{name: "us date without padding", raw: "3/15/2023", ok: true},
		{name: "iso with time", raw: "2023-03-15T18:30:00", ok: true},
		{name: "rfc3339", raw: "2023-03-15T18:30:00Z", ok: true},
		{name: "fractional seconds", raw: "2023-03-15T18:30:00.123Z", ok: true},
		{name: "day first fallback", raw: "15/03/2023", ok: true},
		{name: "long month", raw: "March 15, 2023", ok: true},
		{name: "blank", raw: "  ", ok: false},
		{name: "garbage", raw: "sometime last spring", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDate(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok=%t want %t", tt.raw, ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Fatalf("ParseDate(%q)=%s want %s", tt.raw, got, want)
			}
		})
	}
}

func TestParseDate_MonthFirstWins(t *testing.T) {
	t.Parallel()

	got, ok := ParseDate("04/05/2023")
	if !ok {
		t.Fatalf("expected ambiguous date to parse")
	}
	if got.Month() != time.April || got.Day() != 5 {
		t.Fatalf("expected month-first interpretation, got %s", got.Format("2006-01-02"))
	}
}

func TestClassifyBias(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Anti-Semitic Graffiti":          incident.BiasAntiJewish,
		"Islamophobic Assault":           incident.BiasAntiIslamic,
		"ANTI-JEWISH":                    incident.BiasAntiJewish,
		"antisemitism":                   incident.BiasAntiJewish,
		"Anti-Muslim":                    incident.BiasAntiIslamic,
		"ANTI-BLACK OR AFRICAN AMERICAN": incident.BiasAntiBlack,
		"anti-latino":                    incident.BiasAntiHispanic,
		"Anti-Asian":                     incident.BiasAntiAsian,
		"ANTI-WHITE":                     incident.BiasAntiWhite,
		"ANTI-TRANSGENDER":               incident.BiasAntiLGBTQ,
		"Anti-Catholic":                  incident.BiasAntiChristian,
		"  anti-disability ":             "ANTI-DISABILITY",
		"":                               incident.BiasUnknown,
		"   ":                            incident.BiasUnknown,
	}

	for raw, want := range tests {
		if got := ClassifyBias(raw); got != want {
			t.Fatalf("ClassifyBias(%q)=%q want %q", raw, got, want)
		}
	}
}

func TestClassifyBias_FirstCategoryWins(t *testing.T) {
	t.Parallel()

	// Matches both the Jewish and the Black keyword sets; order decides.
	if got := ClassifyBias("anti-jewish and anti-black"); got != incident.BiasAntiJewish {
		t.Fatalf("expected ANTI-JEWISH to win, got %q", got)
	}
}

func TestCorrectionWeight(t *testing.T) {
	t.Parallel()

	if got := CorrectionWeight(incident.TierAdvocacy, incident.BiasAntiJewish); got != 1.45 {
		t.Fatalf("advocacy anti-jewish weight = %v, want 1.45", got)
	}
	if got := CorrectionWeight(incident.TierGovernmentPolice, incident.BiasAntiJewish); got != 1.0 {
		t.Fatalf("police anti-jewish weight = %v, want 1.0", got)
	}
	if got := CorrectionWeight(incident.TierAdvocacy, incident.BiasAntiIslamic); got != 1.0 {
		t.Fatalf("advocacy anti-islamic weight = %v, want 1.0", got)
	}
}

func TestNormalizeState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    string
		location string
		want     string
	}{
		{state: "New York", want: "NY"},
		{state: "  new   jersey ", want: "NJ"},
		{state: "ca", want: "CA"},
		{state: "TX", want: "TX"},
		{state: "Ontario", want: "ON"},
		{location: "Brooklyn, NY 11201", want: "NY"},
		{location: "Austin, Texas", want: "TX"},
		{location: "somewhere", want: ""},
		{want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeState(tt.state, tt.location); got != tt.want {
			t.Fatalf("NormalizeState(%q, %q)=%q want %q", tt.state, tt.location, got, tt.want)
		}
	}
}

func TestFromRow_AdvocacyAntiJewishWeight(t *testing.T) {
	t.Parallel()

	adl := FromRow(Origin{Source: "ADL", Tier: incident.TierAdvocacy}, Row{
		FieldDate:           "2023-10-12",
		FieldState:          "New York",
		FieldBiasMotivation: "Antisemitic vandalism",
	})
	if adl.IncidentsCorrected != 1.45 {
		t.Fatalf("expected 1.45 for advocacy anti-jewish, got %v", adl.IncidentsCorrected)
	}
	if adl.DateString() != "10/12/2023" {
		t.Fatalf("unexpected canonical date: %q", adl.DateString())
	}

	nypd := FromRow(Origin{Source: "NYPD", Tier: incident.TierGovernmentPolice}, Row{
		FieldDate:           "2023-10-12",
		FieldBiasMotivation: "ANTI-JEWISH",
	})
	if nypd.IncidentsCorrected != 1.0 {
		t.Fatalf("expected 1.0 for police record, got %v", nypd.IncidentsCorrected)
	}
}

func TestFromRow_FieldCoercion(t *testing.T) {
	t.Parallel()

	rec := FromRow(Origin{Source: "ADL", Tier: incident.TierAdvocacy}, Row{
		FieldDate:       "not a date",
		FieldLatitude:   json.Number("40.7128"),
		FieldLongitude:  "-74.0060",
		FieldVerified:   "Yes",
		FieldIncidentID: json.Number("1234"),
	})

	if rec.HasDate() {
		t.Fatalf("expected unknown date")
	}
	if rec.Coordinates == nil || rec.Coordinates.Lat != 40.7128 || rec.Coordinates.Lon != -74.006 {
		t.Fatalf("unexpected coordinates: %+v", rec.Coordinates)
	}
	if !rec.Verified {
		t.Fatalf("expected verified=true")
	}
	if rec.IncidentID != "1234" {
		t.Fatalf("unexpected incident id: %q", rec.IncidentID)
	}
	if rec.BiasMotivationCleaned != incident.BiasUnknown {
		t.Fatalf("expected UNKNOWN bias, got %q", rec.BiasMotivationCleaned)
	}
}

func TestFromRow_PartialCoordinatesDropped(t *testing.T) {
	t.Parallel()

	rec := FromRow(Origin{Source: "NYPD"}, Row{
		FieldLatitude:  "40.7",
		FieldLongitude: "",
	})
	if rec.Coordinates != nil {
		t.Fatalf("expected coordinates to be dropped, got %+v", rec.Coordinates)
	}
	if rec.Tier != incident.TierGovernmentPolice {
		t.Fatalf("expected built-in tier for NYPD, got %q", rec.Tier)
	}
}

func TestRows_CountsUndated(t *testing.T) {
	t.Parallel()

	result := Rows(Origin{Source: "LAPD"}, []Row{
		{FieldDate: "2023-01-01"},
		{FieldDate: "bad"},
		{},
	}, zerolog.Nop())

	if len(result.Records) != 3 {
		t.Fatalf("expected every row to be retained, got %d", len(result.Records))
	}
	if result.Undated != 2 {
		t.Fatalf("expected 2 undated records, got %d", result.Undated)
	}
}
