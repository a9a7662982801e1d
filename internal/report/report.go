package report

import (
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"horse.fit/incident-integrator/internal/globaltime"
	"horse.fit/incident-integrator/internal/incident"
)

// TotalKey is the breakdown bucket covering every source.
const TotalKey = "Total"

const minDescriptionRunes = 10

type Report struct {
	RunID                   string                    `json:"run_id"`
	IntegrationTimestamp    time.Time                 `json:"integration_timestamp"`
	SourceStatistics        SourceStatistics          `json:"source_statistics"`
	SourceCounts            map[string]int            `json:"source_counts"`
	BiasCounts              map[string]int            `json:"bias_counts"`
	BiasMotivationBreakdown map[string]map[string]int `json:"bias_motivation_breakdown"`
	TemporalCoverage        map[string]int            `json:"temporal_coverage"`
	GeographicCoverage      map[string]int            `json:"geographic_coverage"`
	DataQualityMetrics      DataQualityMetrics        `json:"data_quality_metrics"`
}

type SourceStatistics struct {
	InputRows         map[string]int `json:"input_rows"`
	RejectedRows      map[string]int `json:"rejected_rows"`
	UndatedRecords    int            `json:"undated_records"`
	TotalBeforeDedup  int            `json:"total_before_dedup"`
	FinalIncidents    int            `json:"final_incidents"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	Comparisons       int            `json:"comparisons"`
	RemovalReasons    map[string]int `json:"removal_reasons"`
}

type DataQualityMetrics struct {
	IncidentsWithCoordinates  int     `json:"incidents_with_coordinates"`
	IncidentsWithDescriptions int     `json:"incidents_with_descriptions"`
	VerifiedIncidents         int     `json:"verified_incidents"`
	AntisemiticIncidents      int     `json:"antisemitic_incidents"`
	CompletenessScore         float64 `json:"completeness_score"`
}

// RunStats carries the pipeline counters the final record set cannot
// reproduce on its own.
type RunStats struct {
	InputRows        map[string]int
	RejectedRows     map[string]int
	TotalBeforeDedup int
	Undated          int
	Comparisons      int
	RemovalReasons   map[string]int
}

// Build aggregates the final record set. It only reads records.
func Build(records []incident.Record, stats RunStats) Report {
	r := Report{
		RunID:                   uuid.NewString(),
		IntegrationTimestamp:    globaltime.UTC(),
		SourceCounts:            map[string]int{},
		BiasCounts:              map[string]int{},
		BiasMotivationBreakdown: map[string]map[string]int{TotalKey: {}},
		TemporalCoverage:        map[string]int{},
		GeographicCoverage:      map[string]int{},
		SourceStatistics: SourceStatistics{
			InputRows:         copyCounts(stats.InputRows),
			RejectedRows:      copyCounts(stats.RejectedRows),
			UndatedRecords:    stats.Undated,
			TotalBeforeDedup:  stats.TotalBeforeDedup,
			FinalIncidents:    len(records),
			DuplicatesRemoved: stats.TotalBeforeDedup - len(records),
			Comparisons:       stats.Comparisons,
			RemovalReasons:    copyCounts(stats.RemovalReasons),
		},
	}

	filled, cells := 0, 0
	for _, rec := range records {
		r.SourceCounts[rec.Source]++
		r.BiasCounts[rec.BiasMotivationCleaned]++

		bySource, ok := r.BiasMotivationBreakdown[rec.Source]
		if !ok {
			bySource = map[string]int{}
			r.BiasMotivationBreakdown[rec.Source] = bySource
		}
		bySource[rec.BiasMotivationCleaned]++
		r.BiasMotivationBreakdown[TotalKey][rec.BiasMotivationCleaned]++

		if year := rec.Year(); year != 0 {
			r.TemporalCoverage[strconv.Itoa(year)]++
		}
		if rec.State != "" {
			r.GeographicCoverage[rec.State]++
		}

		q := &r.DataQualityMetrics
		if rec.Coordinates != nil {
			q.IncidentsWithCoordinates++
		}
		if utf8.RuneCountInString(rec.Description) > minDescriptionRunes {
			q.IncidentsWithDescriptions++
		}
		if rec.Verified {
			q.VerifiedIncidents++
		}
		if rec.BiasMotivationCleaned == incident.BiasAntiJewish {
			q.AntisemiticIncidents++
		}

		for _, cell := range rec.Cells() {
			cells++
			if cell != "" {
				filled++
			}
		}
	}
	if cells > 0 {
		r.DataQualityMetrics.CompletenessScore = float64(filled) / float64(cells)
	}
	return r
}

// Years returns the covered years in ascending order.
func (r Report) Years() []string {
	years := make([]string, 0, len(r.TemporalCoverage))
	for year := range r.TemporalCoverage {
		years = append(years, year)
	}
	sort.Strings(years)
	return years
}

// Ranked returns the keys of counts ordered by descending count, then key.
func Ranked(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
