package core

import (
	"path/filepath"
	"time"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// WorkspaceIndex is one immutable generation of a workspace's structure.
// Nothing mutates it after Build returns; a reindex publishes a new value.
type WorkspaceIndex struct {
	Workspace   string
	Generation  uint64
	Roots       []string
	BuiltAt     time.Time
	Fingerprint uint64

	Files    []*types.SourceFile
	Types    []*types.TypeDeclaration
	Members  []*types.MemberDeclaration
	Calls    []types.CallSite
	Warnings []*wserrors.AnalysisWarning

	Symbols *SymbolIndex
}

// File returns the file with the given id.
func (ix *WorkspaceIndex) File(id types.FileID) *types.SourceFile {
	if int(id) >= len(ix.Files) {
		return nil
	}
	return ix.Files[id]
}

func (ix *WorkspaceIndex) Type(id types.TypeID) *types.TypeDeclaration {
	if int(id) >= len(ix.Types) {
		return nil
	}
	return ix.Types[id]
}

func (ix *WorkspaceIndex) Member(id types.MemberID) *types.MemberDeclaration {
	if int(id) >= len(ix.Members) {
		return nil
	}
	return ix.Members[id]
}

// Owner returns the type declaring m.
func (ix *WorkspaceIndex) Owner(m *types.MemberDeclaration) *types.TypeDeclaration {
	return ix.Type(m.OwnerID)
}

// FileByPath looks up a file by absolute path.
func (ix *WorkspaceIndex) FileByPath(path string) (*types.SourceFile, bool) {
	id, ok := ix.Symbols.fileByPath[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return ix.Files[id], true
}

// MemberAt returns the innermost member whose span contains line in file.
func (ix *WorkspaceIndex) MemberAt(file types.FileID, line int) *types.MemberDeclaration {
	f := ix.File(file)
	if f == nil {
		return nil
	}
	var best *types.MemberDeclaration
	for _, tid := range f.Types {
		for _, mid := range ix.Types[tid].Members {
			m := ix.Members[mid]
			if m.FileID != file || line < m.StartLine || line > m.EndLine {
				continue
			}
			if best == nil || m.EndLine-m.StartLine < best.EndLine-best.StartLine {
				best = m
			}
		}
	}
	return best
}

// MembersInFile lists every member declared in file, in id order.
func (ix *WorkspaceIndex) MembersInFile(file types.FileID) []*types.MemberDeclaration {
	var out []*types.MemberDeclaration
	for _, m := range ix.Members {
		if m.FileID == file {
			out = append(out, m)
		}
	}
	return out
}

// QualifiedMemberName renders Owner.Member using the owner's qualified name.
func (ix *WorkspaceIndex) QualifiedMemberName(m *types.MemberDeclaration) string {
	if owner := ix.Owner(m); owner != nil {
		return owner.QualifiedName + "." + m.Name
	}
	return m.Name
}

// Stats summarizes the index for diagnostics.
type Stats struct {
	Workspace   string    `json:"workspace"`
	Generation  uint64    `json:"generation"`
	Roots       []string  `json:"roots"`
	Files       int       `json:"files"`
	Analyzed    int       `json:"analyzedFiles"`
	Types       int       `json:"types"`
	Members     int       `json:"members"`
	CallSites   int       `json:"callSites"`
	Warnings    []string  `json:"warnings,omitempty"`
	BuiltAt     time.Time `json:"builtAt"`
	Fingerprint string    `json:"fingerprint"`
}

func (ix *WorkspaceIndex) Stats() Stats {
	s := Stats{
		Workspace:  ix.Workspace,
		Generation: ix.Generation,
		Roots:      ix.Roots,
		Files:      len(ix.Files),
		Types:      len(ix.Types),
		Members:    len(ix.Members),
		CallSites:  len(ix.Calls),
		BuiltAt:    ix.BuiltAt,
	}
	for _, f := range ix.Files {
		if f.Analyzed {
			s.Analyzed++
		}
	}
	for _, w := range ix.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	s.Fingerprint = formatHash(ix.Fingerprint)
	return s
}
