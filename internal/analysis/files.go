package analysis

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// FileEntry is one indexed file, with or without an analyzer.
type FileEntry struct {
	File     string `json:"file"`
	Path     string `json:"path"`
	Root     string `json:"root"`
	Language string `json:"language,omitempty"`
	Size     int64  `json:"size"`
	Analyzed bool   `json:"analyzed"`
	Types    int    `json:"types"`
}

// ListFiles returns indexed files whose relative path matches pattern. A
// pattern without a slash is also tried against the base name, so "*.cs"
// finds files at any depth. An empty pattern lists everything.
func (a *Analyzer) ListFiles(pattern string) ([]FileEntry, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, wserrors.InvalidArguments("invalid glob %q", pattern)
	}
	baseOnly := !strings.Contains(pattern, "/")

	out := []FileEntry{}
	for _, f := range a.ix.Files {
		ok, _ := doublestar.Match(pattern, f.RelPath)
		if !ok && baseOnly {
			ok, _ = doublestar.Match(pattern, f.RelPath[strings.LastIndex(f.RelPath, "/")+1:])
		}
		if !ok {
			continue
		}
		out = append(out, FileEntry{
			File:     f.RelPath,
			Path:     f.Path,
			Root:     f.Root,
			Language: string(f.Language),
			Size:     f.Size,
			Analyzed: f.Analyzed,
			Types:    len(f.Types),
		})
	}
	return out, nil
}
