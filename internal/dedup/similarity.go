package dedup

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores the textual closeness of two strings from 0 to 100.
type Similarity interface {
	Ratio(a, b string) int
}

// SimilarityFunc adapts a plain function to Similarity.
type SimilarityFunc func(a, b string) int

func (f SimilarityFunc) Ratio(a, b string) int {
	return f(a, b)
}

// LevenshteinRatio is the edit distance normalized by the longer string's
// rune count, as a rounded percentage match.
type LevenshteinRatio struct{}

func (LevenshteinRatio) Ratio(a, b string) int {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(longest-distance) / float64(longest)))
}
