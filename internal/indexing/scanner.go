package indexing

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/standardbeagle/wsmcp/internal/debug"
)

// Candidate is a file selected for the index.
type Candidate struct {
	Path    string // absolute, symlinks resolved
	RelPath string // slash separated, relative to Root
	Root    string
	Size    int64
}

// FileScanner enumerates the files of a set of roots.
type FileScanner struct {
	filter           *Filter
	respectGitignore bool
}

func NewFileScanner(filter *Filter, respectGitignore bool) *FileScanner {
	return &FileScanner{filter: filter, respectGitignore: respectGitignore}
}

// Scan walks roots in order. A file reachable from several roots, directly or
// through symlinks, is reported once under the first root that reaches it.
func (s *FileScanner) Scan(ctx context.Context, roots []string) ([]Candidate, error) {
	seen := make(map[string]bool)
	var out []Candidate

	for _, root := range roots {
		var gi *ignore.GitIgnore
		if s.respectGitignore {
			if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
				gi = compiled
			}
		}

		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				debug.LogIndexing("skip %s: %v", p, err)
				if d != nil && d.IsDir() && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if p == root {
					return nil
				}
				if s.filter.IgnoredDir(d.Name()) || (gi != nil && gi.MatchesPath(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if gi != nil && gi.MatchesPath(rel) {
				return nil
			}
			if !s.filter.Allow(rel) {
				return nil
			}

			resolved, err := filepath.EvalSymlinks(p)
			if err != nil {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			if abs, err := filepath.Abs(resolved); err == nil {
				resolved = abs
			}
			if seen[resolved] {
				return nil
			}
			seen[resolved] = true
			out = append(out, Candidate{Path: resolved, RelPath: rel, Root: root, Size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
