// Package analysis answers read-only questions about one published
// WorkspaceIndex: usages, call graphs, implementations, criteria queries,
// method bodies, content search and task context.
package analysis

import (
	"sort"
	"strings"

	"github.com/standardbeagle/wsmcp/internal/core"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/semantic"
	"github.com/standardbeagle/wsmcp/internal/types"
)

const maxSuggestions = 5

// Analyzer reads one snapshot. It never mutates the index, so any number of
// Analyzers may share a snapshot concurrently.
type Analyzer struct {
	ix    *core.WorkspaceIndex
	regex *RegexCache
}

// New returns an Analyzer over ix. cache may be shared between analyzers of
// different generations; nil allocates a private one.
func New(ix *core.WorkspaceIndex, cache *RegexCache) *Analyzer {
	if cache == nil {
		cache = NewRegexCache(DefaultRegexCacheSize)
	}
	return &Analyzer{ix: ix, regex: cache}
}

// Index returns the snapshot this analyzer reads.
func (a *Analyzer) Index() *core.WorkspaceIndex {
	return a.ix
}

// Location is a file position in a result.
type Location struct {
	File   string `json:"file"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// Usage is one call site as reported to clients.
type Usage struct {
	Location
	Callee string `json:"callee"`
	Caller string `json:"caller"`
}

// TypeView is a type declaration as reported to clients.
type TypeView struct {
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName"`
	Kind          string   `json:"kind"`
	Language      string   `json:"language"`
	File          string   `json:"file"`
	StartLine     int      `json:"startLine"`
	EndLine       int      `json:"endLine"`
	Modifiers     []string `json:"modifiers,omitempty"`
	Bases         []string `json:"bases,omitempty"`
	Doc           string   `json:"doc,omitempty"`
}

// MemberView is a member declaration as reported to clients.
type MemberView struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	File       string          `json:"file"`
	StartLine  int             `json:"startLine"`
	EndLine    int             `json:"endLine"`
	Display    string          `json:"display"`
	Signature  types.Signature `json:"signature"`
	Modifiers  []string        `json:"modifiers,omitempty"`
	Visibility string          `json:"visibility,omitempty"`
}

func (a *Analyzer) usage(cs types.CallSite) Usage {
	u := Usage{Location: Location{Line: cs.Line, Column: cs.Column}, Callee: cs.Callee}
	if f := a.ix.File(cs.FileID); f != nil {
		u.File, u.Path = f.RelPath, f.Path
	}
	if m := a.ix.Member(cs.CallerID); m != nil {
		u.Caller = a.ix.QualifiedMemberName(m)
	}
	return u
}

func (a *Analyzer) typeView(t *types.TypeDeclaration) TypeView {
	v := TypeView{
		Name:          t.Name,
		QualifiedName: t.QualifiedName,
		Kind:          string(t.Kind),
		Language:      string(t.Language),
		StartLine:     t.StartLine,
		EndLine:       t.EndLine,
		Modifiers:     t.Modifiers.Names(),
		Bases:         t.Bases,
		Doc:           t.Doc,
	}
	if f := a.ix.File(t.FileID); f != nil {
		v.File = f.RelPath
	}
	return v
}

func (a *Analyzer) memberView(m *types.MemberDeclaration) MemberView {
	v := MemberView{
		Name:       m.Name,
		Kind:       string(m.Kind),
		StartLine:  m.StartLine,
		EndLine:    m.EndLine,
		Display:    DisplaySignature(m),
		Signature:  m.Signature,
		Modifiers:  m.Modifiers.Names(),
		Visibility: string(m.Visibility),
	}
	if owner := a.ix.Owner(m); owner != nil {
		v.Type = owner.QualifiedName
	}
	if f := a.ix.File(m.FileID); f != nil {
		v.File = f.RelPath
	}
	return v
}

// DisplaySignature renders a member for outlines: "Bar(int x) : void".
func DisplaySignature(m *types.MemberDeclaration) string {
	var b strings.Builder
	if m.Signature.Receiver != "" {
		b.WriteString(m.Signature.Receiver + " ")
	}
	b.WriteString(m.Name)
	b.WriteString(m.Signature.TypeParams)
	switch m.Kind {
	case types.KindMethod, types.KindConstructor:
		params := m.Signature.ParameterList
		if params == "" {
			params = "()"
		}
		b.WriteString(params)
	case types.KindProperty:
		if len(m.Signature.Accessors) > 0 {
			b.WriteString(" { " + strings.Join(m.Signature.Accessors, "; ") + "; }")
		}
	}
	if m.Signature.ReturnType != "" {
		b.WriteString(" : " + m.Signature.ReturnType)
	}
	return b.String()
}

// ResolveTypes returns the types whose qualified name equals name or, when
// none does, whose simple name does, in index order. A miss yields a TypeNotFoundError with suggestions.
func (a *Analyzer) ResolveTypes(name string) ([]*types.TypeDeclaration, error) {
	name = strings.TrimSpace(name)
	seen := make(map[types.TypeID]bool)
	var out []*types.TypeDeclaration
	collect := func(refs []core.DeclRef) {
		for _, ref := range refs {
			if ref.Kind != core.DeclType || seen[types.TypeID(ref.ID)] {
				continue
			}
			seen[types.TypeID(ref.ID)] = true
			out = append(out, a.ix.Type(types.TypeID(ref.ID)))
		}
	}
	collect(a.ix.Symbols.ByQualifiedName(name))
	if len(out) == 0 {
		collect(a.ix.Symbols.BySimpleName(types.SimpleName(name)))
	}
	if len(out) == 0 {
		return nil, &wserrors.TypeNotFoundError{Name: name, Suggestions: a.suggestTypes(name)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *Analyzer) suggestTypes(name string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range a.ix.Types {
		if !seen[t.Name] {
			seen[t.Name] = true
			names = append(names, t.Name)
		}
	}
	return semantic.Suggest(types.SimpleName(name), names, maxSuggestions)
}

// membersNamed returns the members of owners named name, in id order.
func (a *Analyzer) membersNamed(owners []*types.TypeDeclaration, name string) []*types.MemberDeclaration {
	var out []*types.MemberDeclaration
	for _, t := range owners {
		for _, id := range t.Members {
			if m := a.ix.Member(id); m.Name == name {
				out = append(out, m)
			}
		}
	}
	return out
}

func (a *Analyzer) memberNotFound(owners []*types.TypeDeclaration, typeName, name string) error {
	seen := make(map[string]bool)
	var names []string
	for _, t := range owners {
		for _, id := range t.Members {
			if n := a.ix.Member(id).Name; !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return wserrors.NotFound("no member %q in type %q", name, typeName).
		WithSuggestions(semantic.Suggest(name, names, maxSuggestions))
}
