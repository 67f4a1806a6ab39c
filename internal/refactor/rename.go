package refactor

import (
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/standardbeagle/wsmcp/internal/debug"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// FileRename is the effect of a rename on one file.
type FileRename struct {
	File        string `json:"file"`
	Path        string `json:"path"`
	Occurrences int    `json:"occurrences"`
	BackupPath  string `json:"backupPath,omitempty"`
	Diff        string `json:"diff,omitempty"`
}

// RenameResult summarizes a rename across the workspace.
type RenameResult struct {
	OldName      string       `json:"oldName"`
	NewName      string       `json:"newName"`
	Preview      bool         `json:"preview"`
	FilesTouched int          `json:"filesTouched"`
	Occurrences  int          `json:"occurrences"`
	Files        []FileRename `json:"files"`
	Skipped      []string     `json:"skipped,omitempty"`
}

// RenameSymbol replaces whole-word occurrences of oldName in every indexed
// file that has an analyzer, reading the current disk contents. Matching is
// textual: occurrences in comments and string literals are renamed too.
// With preview set nothing is written and each file carries its diff.
func (s *Service) RenameSymbol(oldName, newName string, preview bool) (*RenameResult, error) {
	if !validIdentifier(oldName) || !validIdentifier(newName) {
		return nil, wserrors.InvalidArguments("oldName and newName must be identifiers, got %q and %q", oldName, newName)
	}
	if oldName == newName {
		return nil, wserrors.InvalidArguments("oldName and newName are identical")
	}
	ix, err := s.index()
	if err != nil {
		return nil, err
	}

	res := &RenameResult{OldName: oldName, NewName: newName, Preview: preview, Files: []FileRename{}}
	for _, f := range ix.Files {
		if !f.Analyzed {
			continue
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			res.Skipped = append(res.Skipped, f.RelPath)
			continue
		}
		before := string(data)
		matches := identifierMatches(before, oldName)
		count := len(matches)
		if count == 0 {
			continue
		}
		after := replaceMatches(before, matches, len(oldName), newName)
		fr := FileRename{File: f.RelPath, Path: f.Path, Occurrences: count}

		if preview {
			d, err := unifiedDiff(f.RelPath, before, after, false)
			if err != nil {
				return nil, err
			}
			fr.Diff = d.Unified
		} else {
			wr, err := s.write(ix.Workspace, target{Requested: f.Path, Path: f.Path, Root: f.Root, RelPath: f.RelPath}, []byte(after))
			if err != nil {
				return nil, err
			}
			fr.BackupPath = wr.BackupPath
		}
		res.Files = append(res.Files, fr)
		res.FilesTouched++
		res.Occurrences += count
	}

	debug.LogRefactor("rename %s -> %s preview=%v: %d occurrences in %d files", oldName, newName, preview, res.Occurrences, res.FilesTouched)
	return res, nil
}

// identifierMatches returns the byte offsets of name in text where it is not
// part of a longer identifier. Identifier characters are letters, digits, _
// and $, the same set validIdentifier accepts.
func identifierMatches(text, name string) []int {
	var out []int
	for from := 0; from <= len(text)-len(name); {
		i := strings.Index(text[from:], name)
		if i < 0 {
			break
		}
		at := from + i
		end := at + len(name)
		before, _ := utf8.DecodeLastRuneInString(text[:at])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (at == 0 || !isIdentifierRune(before)) && (end == len(text) || !isIdentifierRune(after)) {
			out = append(out, at)
			from = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[at:])
		from = at + size
	}
	return out
}

func isIdentifierRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func replaceMatches(text string, matches []int, oldLen int, repl string) string {
	var b strings.Builder
	b.Grow(len(text) + len(matches)*(len(repl)-oldLen))
	last := 0
	for _, at := range matches {
		b.WriteString(text[last:at])
		b.WriteString(repl)
		last = at + oldLen
	}
	b.WriteString(text[last:])
	return b.String()
}
