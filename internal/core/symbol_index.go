package core

import (
	"path/filepath"
	"sort"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// DeclKind distinguishes the two declaration tables.
type DeclKind uint8

const (
	DeclType DeclKind = iota
	DeclMember
)

// DeclRef points at a type or member of the owning index.
type DeclRef struct {
	Kind DeclKind
	ID   uint32
}

// SymbolIndex holds the lookup tables derived from one WorkspaceIndex. It is
// built once, before the index is published, and never written afterwards.
type SymbolIndex struct {
	byQualified   map[string][]DeclRef
	bySimple      map[string][]DeclRef
	callsByName   map[string][]int
	callsByCaller map[types.MemberID][]int
	implementors  map[string][]types.TypeID
	fileByPath    map[string]types.FileID
	names         []string

	calls []types.CallSite
}

func buildSymbolIndex(ix *WorkspaceIndex) *SymbolIndex {
	s := &SymbolIndex{
		byQualified:   make(map[string][]DeclRef),
		bySimple:      make(map[string][]DeclRef),
		callsByName:   make(map[string][]int),
		callsByCaller: make(map[types.MemberID][]int),
		implementors:  make(map[string][]types.TypeID),
		fileByPath:    make(map[string]types.FileID, len(ix.Files)),
		calls:         ix.Calls,
	}

	for _, f := range ix.Files {
		s.fileByPath[filepath.Clean(f.Path)] = f.ID
	}
	for _, t := range ix.Types {
		ref := DeclRef{Kind: DeclType, ID: uint32(t.ID)}
		s.byQualified[t.QualifiedName] = append(s.byQualified[t.QualifiedName], ref)
		s.bySimple[t.Name] = append(s.bySimple[t.Name], ref)
		for _, base := range t.Bases {
			simple := types.SimpleName(base)
			s.implementors[simple] = append(s.implementors[simple], t.ID)
		}
	}
	for _, m := range ix.Members {
		ref := DeclRef{Kind: DeclMember, ID: uint32(m.ID)}
		qualified := ix.QualifiedMemberName(m)
		s.byQualified[qualified] = append(s.byQualified[qualified], ref)
		s.bySimple[m.Name] = append(s.bySimple[m.Name], ref)
	}
	for i, c := range ix.Calls {
		s.callsByName[c.Callee] = append(s.callsByName[c.Callee], i)
		s.callsByCaller[c.CallerID] = append(s.callsByCaller[c.CallerID], i)
	}

	s.names = make([]string, 0, len(s.bySimple))
	for name := range s.bySimple {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// ByQualifiedName returns every declaration with the exact qualified name.
// Partial types and overloads yield more than one entry.
func (s *SymbolIndex) ByQualifiedName(name string) []DeclRef {
	return s.byQualified[name]
}

// BySimpleName returns every declaration with the given unqualified name.
func (s *SymbolIndex) BySimpleName(name string) []DeclRef {
	return s.bySimple[name]
}

// CallsTo returns the call sites whose written callee equals name.
func (s *SymbolIndex) CallsTo(name string) []types.CallSite {
	return s.pick(s.callsByName[name])
}

// CallsFrom returns the call sites written inside member id.
func (s *SymbolIndex) CallsFrom(id types.MemberID) []types.CallSite {
	return s.pick(s.callsByCaller[id])
}

// ImplementorsOf returns the types listing name among their bases.
func (s *SymbolIndex) ImplementorsOf(name string) []types.TypeID {
	return s.implementors[name]
}

// Names lists every distinct simple declaration name, sorted.
func (s *SymbolIndex) Names() []string {
	return s.names
}

func (s *SymbolIndex) pick(idx []int) []types.CallSite {
	if len(idx) == 0 {
		return nil
	}
	out := make([]types.CallSite, len(idx))
	for i, n := range idx {
		out[i] = s.calls[n]
	}
	return out
}
