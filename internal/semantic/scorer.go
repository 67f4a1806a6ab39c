package semantic

import "strings"

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "code": true, "do": true, "for": true, "from": true, "how": true, "i": true,
	"in": true, "is": true, "it": true, "me": true, "my": true, "need": true, "of": true,
	"on": true, "or": true, "should": true, "so": true, "that": true, "the": true, "this": true,
	"to": true, "we": true, "what": true, "when": true, "where": true, "which": true,
	"with": true, "want": true, "add": true, "make": true, "fix": true, "change": true,
}

// Term is one keyword of a task with its stem.
type Term struct {
	Word string
	Stem string
}

// Scorer ranks names against the keywords of a task description.
type Scorer struct {
	splitter *NameSplitter
	stemmer  *Stemmer
	fuzzy    *FuzzyMatcher
	terms    []Term
}

// Weights of the three match layers.
const (
	exactWeight = 3.0
	stemWeight  = 2.0
	fuzzyWeight = 1.0
)

// NewScorer extracts the keywords of task. Stop words and one-letter words
// are dropped.
func NewScorer(task string) *Scorer {
	s := &Scorer{
		splitter: NewNameSplitterWithSize(4096),
		stemmer:  NewStemmer(3),
		fuzzy:    NewFuzzyMatcher(DefaultFuzzyThreshold),
	}
	seen := make(map[string]bool)
	for _, field := range strings.FieldsFunc(task, func(r rune) bool {
		return !(r == '_' || r == '-' || r == '.' || isWordRune(r))
	}) {
		for _, w := range s.splitter.Split(field) {
			if len(w) < 2 || stopWords[w] || seen[w] {
				continue
			}
			seen[w] = true
			s.terms = append(s.terms, Term{Word: w, Stem: s.stemmer.Stem(w)})
		}
	}
	return s
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r > 127
}

// Terms returns the task keywords in order of first appearance.
func (s *Scorer) Terms() []Term {
	return s.terms
}

// Score rates text (an identifier, path or doc comment) against the task.
// Each task term contributes the weight of the best layer it matches, so a
// term counts at most once per call.
func (s *Scorer) Score(text string) float64 {
	if len(s.terms) == 0 || text == "" {
		return 0
	}
	words := s.splitter.Split(text)
	if len(words) == 0 {
		return 0
	}
	stems := s.stemmer.StemAll(words)

	total := 0.0
	for _, t := range s.terms {
		best := 0.0
		for i, w := range words {
			switch {
			case w == t.Word:
				best = exactWeight
			case stems[i] == t.Stem && best < stemWeight:
				best = stemWeight
			case best < fuzzyWeight && len(w) > 3 && len(t.Word) > 3 && s.fuzzy.Match(w, t.Word):
				best = fuzzyWeight
			}
			if best == exactWeight {
				break
			}
		}
		total += best
	}
	return total
}
