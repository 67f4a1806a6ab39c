package analysis

import (
	"regexp"
	"strings"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// Search limits.
const (
	DefaultContextLines = 2
	MaxContextLines     = 10
	DefaultMaxResults   = 50
	MaxMaxResults       = 500
)

// SearchOptions are the arguments of a content search. Zero values take the
// defaults above.
type SearchOptions struct {
	Pattern       string `json:"pattern"`
	IsRegex       bool   `json:"isRegex,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	ContextLines  *int   `json:"contextLines,omitempty"`
	MaxResults    int    `json:"maxResults,omitempty"`
}

// SearchMatch is one matching line with its surroundings.
type SearchMatch struct {
	Location
	Text   string   `json:"text"`
	Before []string `json:"before,omitempty"`
	After  []string `json:"after,omitempty"`
	Member string   `json:"member,omitempty"`
}

// SearchResult lists matches in file then line order.
type SearchResult struct {
	Pattern      string        `json:"pattern"`
	Matches      []SearchMatch `json:"matches"`
	FilesScanned int           `json:"filesScanned"`
	Truncated    bool          `json:"truncated,omitempty"`
}

// SearchContent scans the snapshot text of every file. The pattern is
// literal unless IsRegex is set.
func (a *Analyzer) SearchContent(opts SearchOptions) (*SearchResult, error) {
	if opts.Pattern == "" {
		return nil, wserrors.InvalidArguments("pattern is required")
	}
	contextLines := DefaultContextLines
	if opts.ContextLines != nil {
		contextLines = min(max(*opts.ContextLines, 0), MaxContextLines)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	maxResults = min(maxResults, MaxMaxResults)

	pattern := opts.Pattern
	if !opts.IsRegex {
		pattern = regexp.QuoteMeta(pattern)
	}
	re, err := a.regex.Compile(pattern, !opts.CaseSensitive)
	if err != nil {
		te := wserrors.InvalidArguments("invalid regular expression %q: %v", opts.Pattern, err)
		te.Underlying = err
		return nil, te
	}

	res := &SearchResult{Pattern: opts.Pattern, Matches: []SearchMatch{}}
	for _, f := range a.ix.Files {
		if f.Text == "" {
			continue
		}
		res.FilesScanned++
		lines := strings.Split(f.Text, "\n")
		for i, raw := range lines {
			line := strings.TrimSuffix(raw, "\r")
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if len(res.Matches) == maxResults {
				res.Truncated = true
				return res, nil
			}
			m := SearchMatch{
				Location: Location{File: f.RelPath, Path: f.Path, Line: i + 1, Column: loc[0] + 1},
				Text:     line,
				Before:   contextSlice(lines, i-contextLines, i),
				After:    contextSlice(lines, i+1, i+1+contextLines),
			}
			if member := a.ix.MemberAt(f.ID, i+1); member != nil {
				m.Member = a.ix.QualifiedMemberName(member)
			}
			res.Matches = append(res.Matches, m)
		}
	}
	return res, nil
}

func contextSlice(lines []string, from, to int) []string {
	from = max(from, 0)
	to = min(to, len(lines))
	if from >= to {
		return nil
	}
	out := make([]string, 0, to-from)
	for _, l := range lines[from:to] {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}
