package dedup

import (
	"unicode/utf8"

	"horse.fit/incident-integrator/internal/incident"
)

// Reason explains why one member of a duplicate pair was removed.
type Reason string

const (
	ReasonPrecedence        Reason = "precedence"
	ReasonDescriptionLength Reason = "description_length"
)

type Removal struct {
	Removed      incident.Record
	Kept         incident.Record
	RemovedIndex int
	KeptIndex    int
	Reason       Reason
	Rule         Rule
}

// entry is a dated record under resolution with its liveness flag. Only
// the selector writes alive.
type entry struct {
	record incident.Record
	input  int
	alive  bool
}

// selector owns one entry per sorted position of the Index.
type selector struct {
	entries  []entry
	undated  []incident.Record
	removals []Removal
}

func newSelector(index *Index) *selector {
	entries := make([]entry, index.Len())
	for pos := range entries {
		entries[pos] = entry{record: index.Record(pos), input: index.At(pos), alive: true}
	}
	undated := make([]incident.Record, 0, len(index.Undated()))
	for _, i := range index.Undated() {
		undated = append(undated, index.records[i])
	}
	return &selector{entries: entries, undated: undated}
}

func (s *selector) isAlive(pos int) bool {
	return s.entries[pos].alive
}

// resolve marks the losing member of a duplicate pair dead and reports
// whether it was the anchor.
func (s *selector) resolve(anchor, candidate int, rule Rule) (anchorRemoved bool) {
	removeAnchor, reason := choose(s.entries[anchor].record, s.entries[candidate].record)

	loser, winner := &s.entries[candidate], &s.entries[anchor]
	if removeAnchor {
		loser, winner = winner, loser
	}
	loser.alive = false
	s.removals = append(s.removals, Removal{
		Removed:      loser.record,
		Kept:         winner.record,
		RemovedIndex: loser.input,
		KeptIndex:    winner.input,
		Reason:       reason,
		Rule:         rule,
	})
	return removeAnchor
}

// kept returns surviving dated records in date order followed by every
// undated record in input order.
func (s *selector) kept() []incident.Record {
	out := make([]incident.Record, 0, len(s.entries)+len(s.undated))
	for _, e := range s.entries {
		if e.alive {
			out = append(out, e.record)
		}
	}
	return append(out, s.undated...)
}

// choose decides which record of a duplicate pair to drop. An advocacy
// record always beats a police record; otherwise the longer description
// wins and ties keep the anchor.
func choose(anchor, candidate incident.Record) (removeAnchor bool, reason Reason) {
	switch {
	case anchor.Tier == incident.TierAdvocacy && candidate.Tier == incident.TierGovernmentPolice:
		return false, ReasonPrecedence
	case anchor.Tier == incident.TierGovernmentPolice && candidate.Tier == incident.TierAdvocacy:
		return true, ReasonPrecedence
	}
	if utf8.RuneCountInString(anchor.Description) >= utf8.RuneCountInString(candidate.Description) {
		return false, ReasonDescriptionLength
	}
	return true, ReasonDescriptionLength
}
