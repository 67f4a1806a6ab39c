package semantic

import (
	"strings"

	"github.com/surgebase/porter2"
)

// Stemmer reduces words to Porter2 stems. Words shorter than minLength and
// excluded words are returned lowercased but unstemmed.
type Stemmer struct {
	minLength  int
	exclusions map[string]bool
}

func NewStemmer(minLength int, exclusions ...string) *Stemmer {
	if minLength < 0 {
		minLength = 3
	}
	s := &Stemmer{minLength: minLength, exclusions: make(map[string]bool, len(exclusions))}
	for _, e := range exclusions {
		s.exclusions[strings.ToLower(e)] = true
	}
	return s
}

func (s *Stemmer) Stem(word string) string {
	w := strings.ToLower(word)
	if len(w) < s.minLength || s.exclusions[w] {
		return w
	}
	return porter2.Stem(w)
}

func (s *Stemmer) StemAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, s.Stem(w))
	}
	return out
}
