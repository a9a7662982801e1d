package dedup

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"horse.fit/incident-integrator/internal/incident"
)

const (
	maxDateGap            = 3 * 24 * time.Hour
	maxDistanceMiles      = 2.0
	minDescriptionRunes   = 20
	descriptionThreshold  = 80
	minLocationRunes      = 5
	locationNameThreshold = 85
)

// Rule names the check that decided a verdict.
type Rule string

const (
	RuleUndated       Rule = "undated"
	RuleDateGap       Rule = "date_gap"
	RuleStateMismatch Rule = "state_mismatch"
	RuleBiasMismatch  Rule = "bias_mismatch"
	RuleDistance      Rule = "distance"
	RuleIncidentID    Rule = "incident_id"
	RuleDescription   Rule = "description_similarity"
	RuleLocation      Rule = "location_similarity"
	RuleNoEvidence    Rule = "no_evidence"
)

type Verdict struct {
	Duplicate bool
	Rule      Rule
	Score     int
}

// Matcher applies the ordered duplicate rules to a candidate pair.
// It only reads record fields and is safe for concurrent use.
type Matcher struct {
	similarity Similarity
}

func NewMatcher(similarity Similarity) *Matcher {
	if similarity == nil {
		similarity = LevenshteinRatio{}
	}
	return &Matcher{similarity: similarity}
}

// IsDuplicate reports whether a and b describe the same incident.
func (m *Matcher) IsDuplicate(a, b incident.Record) bool {
	return m.Evaluate(a, b).Duplicate
}

// Evaluate runs the rules in order; hard filters short-circuit to a
// rejection before any accepting evidence is considered.
func (m *Matcher) Evaluate(a, b incident.Record) Verdict {
	if !a.HasDate() || !b.HasDate() {
		return Verdict{Rule: RuleUndated}
	}
	if absDuration(a.Date.Sub(*b.Date)) > maxDateGap {
		return Verdict{Rule: RuleDateGap}
	}
	if a.State != "" && b.State != "" && a.State != b.State {
		return Verdict{Rule: RuleStateMismatch}
	}
	if a.BiasKnown() && b.BiasKnown() && a.BiasMotivationCleaned != b.BiasMotivationCleaned {
		return Verdict{Rule: RuleBiasMismatch}
	}
	if a.Coordinates != nil && b.Coordinates != nil && distanceMiles(*a.Coordinates, *b.Coordinates) > maxDistanceMiles {
		return Verdict{Rule: RuleDistance}
	}

	if a.Source == b.Source && a.IncidentID != "" && a.IncidentID == b.IncidentID {
		return Verdict{Duplicate: true, Rule: RuleIncidentID, Score: 100}
	}

	if utf8.RuneCountInString(a.Description) > minDescriptionRunes && utf8.RuneCountInString(b.Description) > minDescriptionRunes {
		score := m.similarity.Ratio(foldCase(a.Description), foldCase(b.Description))
		if score > descriptionThreshold {
			return Verdict{Duplicate: true, Rule: RuleDescription, Score: score}
		}
	}

	locA, locB := a.Location(), b.Location()
	if utf8.RuneCountInString(locA) > minLocationRunes && utf8.RuneCountInString(locB) > minLocationRunes {
		score := m.similarity.Ratio(foldCase(locA), foldCase(locB))
		if score > locationNameThreshold {
			return Verdict{Duplicate: true, Rule: RuleLocation, Score: score}
		}
	}

	return Verdict{Rule: RuleNoEvidence}
}

// foldCase builds a fresh Caser per call; a Caser must not be shared
// between goroutines.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
