package normalize

import (
	"regexp"
	"strings"
)

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE",
	"nevada": "NV", "new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

var stateTokenRe = regexp.MustCompile(`\b([A-Z]{2})\b`)

// NormalizeState resolves a two-letter state code from a state field and,
// failing that, from a free-text location such as "Brooklyn, NY".
func NormalizeState(state, location string) string {
	trimmed := strings.TrimSpace(state)
	if trimmed != "" {
		return normalizeStateValue(trimmed)
	}

	loc := strings.TrimSpace(location)
	if loc == "" {
		return ""
	}
	if matches := stateTokenRe.FindAllStringSubmatch(loc, -1); len(matches) > 0 {
		return matches[len(matches)-1][1]
	}
	if idx := strings.LastIndex(loc, ","); idx >= 0 {
		return normalizeStateValue(strings.TrimSpace(loc[idx+1:]))
	}
	return ""
}

func normalizeStateValue(value string) string {
	if value == "" {
		return ""
	}
	if code, ok := stateCodes[strings.ToLower(normalizeSpace(value))]; ok {
		return code
	}
	upper := strings.ToUpper(value)
	runes := []rune(upper)
	if len(runes) <= 2 {
		return upper
	}
	return string(runes[:2])
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
