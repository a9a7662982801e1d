package normalize

import (
	"strings"

	"horse.fit/incident-integrator/internal/incident"
)

type biasCategory struct {
	Name     string
	Keywords []string
}

// biasCategories is ordered: the first category with a matching keyword wins.
var biasCategories = []biasCategory{
	{Name: incident.BiasAntiJewish, Keywords: []string{"JEWISH", "JUDAISM", "ANTISEMIT", "ANTI-SEMIT"}},
	{Name: incident.BiasAntiIslamic, Keywords: []string{"MUSLIM", "ISLAM"}},
	{Name: incident.BiasAntiBlack, Keywords: []string{"BLACK", "AFRICAN"}},
	{Name: incident.BiasAntiHispanic, Keywords: []string{"HISPANIC", "LATINO"}},
	{Name: incident.BiasAntiAsian, Keywords: []string{"ASIAN", "PACIFIC"}},
	{Name: incident.BiasAntiWhite, Keywords: []string{"WHITE", "CAUCASIAN"}},
	{Name: incident.BiasAntiLGBTQ, Keywords: []string{"GAY", "LESBIAN", "LGBTQ", "TRANSGENDER", "BISEXUAL"}},
	{Name: incident.BiasAntiChristian, Keywords: []string{"CATHOLIC", "CHRISTIAN", "PROTESTANT"}},
}

// ClassifyBias maps free-text bias motivation onto the closed taxonomy.
// Unmatched text passes through uppercased; blank text is UNKNOWN.
func ClassifyBias(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return incident.BiasUnknown
	}

	for _, category := range biasCategories {
		for _, keyword := range category.Keywords {
			if strings.Contains(upper, keyword) {
				return category.Name
			}
		}
	}
	return upper
}

// CorrectionWeight is the under-reporting multiplier for a record.
func CorrectionWeight(tier incident.Tier, cleanedBias string) float64 {
	if tier == incident.TierAdvocacy && cleanedBias == incident.BiasAntiJewish {
		return 1.45
	}
	return 1.0
}
