package semantic

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultFuzzyThreshold is the Jaro-Winkler similarity needed for a match.
const DefaultFuzzyThreshold = 0.85

// FuzzyMatcher compares strings with Jaro-Winkler similarity.
type FuzzyMatcher struct {
	threshold float64
}

func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{threshold: threshold}
}

func (fm *FuzzyMatcher) Threshold() float64 {
	return fm.threshold
}

// Similarity returns a case-insensitive score in [0,1].
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(score)
}

func (fm *FuzzyMatcher) Match(a, b string) bool {
	return fm.Similarity(a, b) >= fm.threshold
}

// FuzzyMatch is one candidate and its similarity to the target.
type FuzzyMatch struct {
	Term       string
	Similarity float64
}

// FindMatches returns candidates at or above the threshold, best first.
// Ties keep candidate order.
func (fm *FuzzyMatcher) FindMatches(target string, candidates []string) []FuzzyMatch {
	var matches []FuzzyMatch
	for _, c := range candidates {
		if sim := fm.Similarity(target, c); sim >= fm.threshold {
			matches = append(matches, FuzzyMatch{Term: c, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	return matches
}

// Suggest returns up to limit distinct candidates resembling target, using a
// looser threshold than Match so near misses still surface.
func Suggest(target string, candidates []string, limit int) []string {
	loose := NewFuzzyMatcher(0.75)
	seen := make(map[string]bool)
	var out []string
	for _, m := range loose.FindMatches(target, candidates) {
		if seen[m.Term] {
			continue
		}
		seen[m.Term] = true
		out = append(out, m.Term)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
