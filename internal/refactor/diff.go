package refactor

import (
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

const diffContextLines = 3

// Diff is a line diff of one file in unified format.
type Diff struct {
	Path    string `json:"path"`
	File    string `json:"file"`
	NewFile bool   `json:"newFile"`
	Changed bool   `json:"changed"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Hunks   int    `json:"hunks"`
	Unified string `json:"unified"`
}

// PreviewWrite diffs content against the file currently on disk. A missing
// file yields a single hunk of additions. Nothing is written.
func (s *Service) PreviewWrite(path, content string) (*Diff, error) {
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	t, err := resolve(ix.Roots, path)
	if err != nil {
		return nil, err
	}
	before, err := os.ReadFile(t.Path)
	switch {
	case os.IsNotExist(err):
		return unifiedDiff(t.RelPath, "", content, true)
	case err != nil:
		return nil, wserrors.NewToolError(wserrors.CodeNotFound, "read %s: %v", t.RelPath, err)
	}
	return unifiedDiff(t.RelPath, string(before), content, false)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// unifiedDiff renders before -> after. difflib computes the opcodes and
// go-diff prints the hunks.
func unifiedDiff(rel, before, after string, newFile bool) (*Diff, error) {
	a, b := splitLines(before), splitLines(after)
	d := &Diff{File: rel, Path: rel, NewFile: newFile}

	fd := &diff.FileDiff{OrigName: "a/" + rel, NewName: "b/" + rel}
	if newFile {
		fd.OrigName = "/dev/null"
	}

	groups := difflib.NewMatcher(a, b).GetGroupedOpCodes(diffContextLines)
	if newFile && len(b) > 0 && len(groups) == 0 {
		groups = [][]difflib.OpCode{{{Tag: 'i', I1: 0, I2: 0, J1: 0, J2: len(b)}}}
	}
	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		h := &diff.Hunk{
			OrigStartLine: hunkStart(first.I1, last.I2),
			OrigLines:     int32(last.I2 - first.I1),
			NewStartLine:  hunkStart(first.J1, last.J2),
			NewLines:      int32(last.J2 - first.J1),
		}
		var body strings.Builder
		for _, op := range group {
			switch op.Tag {
			case 'e':
				writeLines(&body, ' ', a[op.I1:op.I2])
			case 'd':
				writeLines(&body, '-', a[op.I1:op.I2])
				d.Removed += op.I2 - op.I1
			case 'i':
				writeLines(&body, '+', b[op.J1:op.J2])
				d.Added += op.J2 - op.J1
			case 'r':
				writeLines(&body, '-', a[op.I1:op.I2])
				writeLines(&body, '+', b[op.J1:op.J2])
				d.Removed += op.I2 - op.I1
				d.Added += op.J2 - op.J1
			}
		}
		h.Body = []byte(body.String())
		fd.Hunks = append(fd.Hunks, h)
	}

	d.Hunks = len(fd.Hunks)
	d.Changed = d.Hunks > 0
	if !d.Changed {
		return d, nil
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return nil, err
	}
	d.Unified = string(out)
	return d, nil
}

// hunkStart follows the unified format: 1-based, or the preceding line for
// an empty range.
func hunkStart(start, stop int) int32 {
	if stop-start == 0 {
		return int32(start)
	}
	return int32(start + 1)
}

func writeLines(b *strings.Builder, prefix byte, lines []string) {
	for _, l := range lines {
		b.WriteByte(prefix)
		b.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
}
