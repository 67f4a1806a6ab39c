package indexing

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter applies a workspace's extension allow-list and ignored directory names.
type Filter struct {
	patterns []string // lowercased doublestar patterns; empty means allow all
	ignore   map[string]bool
}

// NewFilter normalizes the allow-list: "*.cs", ".cs" and "cs" are equivalent,
// and an empty list or any "*" entry allows every file.
func NewFilter(extensions, ignore []string) *Filter {
	f := &Filter{ignore: make(map[string]bool, len(ignore))}
	for _, name := range ignore {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `/\`))
		if name != "" {
			f.ignore[name] = true
		}
	}
	for _, ext := range extensions {
		p := normalizePattern(ext)
		if p == "" {
			continue
		}
		if p == "*" {
			f.patterns = nil
			return f
		}
		f.patterns = append(f.patterns, p)
	}
	return f
}

func normalizePattern(ext string) string {
	p := strings.ToLower(strings.TrimSpace(ext))
	switch {
	case p == "":
		return ""
	case p == "*" || p == "*.*" || p == "**":
		return "*"
	case strings.ContainsAny(p, "*?[{"):
		return p
	case strings.HasPrefix(p, "."):
		return "*" + p
	default:
		return "*." + p
	}
}

// IgnoredDir reports whether a directory name is in the ignore set.
func (f *Filter) IgnoredDir(name string) bool {
	return f.ignore[strings.ToLower(name)]
}

// Allow reports whether a slash-separated path relative to its root passes
// both the ignore set and the allow-list.
func (f *Filter) Allow(rel string) bool {
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		if f.IgnoredDir(seg) {
			return false
		}
	}
	if len(f.patterns) == 0 {
		return true
	}
	lower := strings.ToLower(rel)
	base := path.Base(lower)
	for _, p := range f.patterns {
		target := base
		if strings.Contains(p, "/") {
			target = lower
		}
		if ok, err := doublestar.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
