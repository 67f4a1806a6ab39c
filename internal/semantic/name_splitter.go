package semantic

import (
	"strings"
	"sync"
	"unicode"
)

// DefaultCacheSize bounds the split cache.
const DefaultCacheSize = 1000

// NameSplitter splits identifiers into lowercase words. Results are cached
// with FIFO eviction; the splitter is safe for concurrent use.
type NameSplitter struct {
	mu      sync.Mutex
	cache   map[string][]string
	order   []string
	maxSize int
}

func NewNameSplitter() *NameSplitter {
	return NewNameSplitterWithSize(DefaultCacheSize)
}

func NewNameSplitterWithSize(size int) *NameSplitter {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &NameSplitter{cache: make(map[string][]string, size), maxSize: size}
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', '.', '/', ' ', '$', ':', '<', '>', ',', '(', ')':
		return true
	}
	return false
}

// Split returns the words of name: "parseHTTPRequest_v2" -> [parse http request v 2].
func (ns *NameSplitter) Split(name string) []string {
	if name == "" {
		return nil
	}
	ns.mu.Lock()
	if cached, ok := ns.cache[name]; ok {
		ns.mu.Unlock()
		return cached
	}
	ns.mu.Unlock()

	runes := []rune(name)
	words := make([]string, 0, 4)
	buf := make([]rune, 0, len(runes))
	flush := func() {
		if len(buf) > 0 {
			words = append(words, strings.ToLower(string(buf)))
			buf = buf[:0]
		}
	}

	for i, ch := range runes {
		if isSeparator(ch) {
			flush()
			continue
		}
		if i > 0 && !isSeparator(runes[i-1]) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(ch):
				flush()
			case unicode.IsUpper(prev) && unicode.IsLower(ch) && len(buf) > 1:
				// End of an acronym: HTTPServer -> HTTP Server.
				last := buf[len(buf)-1]
				buf = buf[:len(buf)-1]
				flush()
				buf = append(buf, last)
			case unicode.IsLetter(prev) && unicode.IsDigit(ch), unicode.IsDigit(prev) && unicode.IsLetter(ch):
				flush()
			}
		}
		buf = append(buf, ch)
	}
	flush()

	ns.mu.Lock()
	if len(ns.order) >= ns.maxSize {
		delete(ns.cache, ns.order[0])
		ns.order = ns.order[1:]
	}
	ns.cache[name] = words
	ns.order = append(ns.order, name)
	ns.mu.Unlock()
	return words
}

// SplitToSet returns the unique words of name.
func (ns *NameSplitter) SplitToSet(name string) map[string]bool {
	words := ns.Split(name)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
