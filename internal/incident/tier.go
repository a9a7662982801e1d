package incident

import (
	"fmt"
	"strings"
)

// Tier classifies a source for duplicate-resolution precedence.
type Tier string

const (
	TierGovernmentPolice Tier = "government-police"
	TierAdvocacy         Tier = "advocacy"
	TierFederalAggregate Tier = "federal-aggregate"
	TierOther            Tier = "other"
)

// knownSourceTiers is the fallback when a registry entry omits its tier.
var knownSourceTiers = map[string]Tier{
	"NYPD": TierGovernmentPolice,
	"LAPD": TierGovernmentPolice,
	"ADL":  TierAdvocacy,
	"FBI":  TierFederalAggregate,
}

// ParseTier accepts the canonical tier names and a few common spellings.
func ParseTier(raw string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "government-police", "government_police", "police":
		return TierGovernmentPolice, nil
	case "advocacy", "advocacy-organization", "advocacy_organization":
		return TierAdvocacy, nil
	case "federal-aggregate", "federal_aggregate", "federal":
		return TierFederalAggregate, nil
	case "other", "":
		return TierOther, nil
	default:
		return "", fmt.Errorf("unknown tier %q", raw)
	}
}

// TierForSource returns the built-in tier of a well-known source name.
func TierForSource(source string) Tier {
	if tier, ok := knownSourceTiers[strings.ToUpper(strings.TrimSpace(source))]; ok {
		return tier
	}
	return TierOther
}
