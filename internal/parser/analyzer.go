package parser

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// Call is a call site written inside a member body.
type Call struct {
	Name   string
	Line   int
	Column int
}

// Member is a member declaration as produced by an analyzer.
type Member struct {
	Name       string
	Kind       types.MemberKind
	Signature  types.Signature
	StartLine  int
	EndLine    int
	BodyStart  int
	BodyStyle  types.BodyStyle
	Body       string
	Modifiers  types.Modifiers
	Visibility types.Visibility
	Doc        string
	Calls      []Call

	// Owner names the type for members declared outside its body, such as
	// Go methods. Empty for members nested in their type.
	Owner string
}

// Type is a type declaration as produced by an analyzer.
type Type struct {
	Name       string
	Namespace  string
	Kind       types.TypeKind
	StartLine  int
	EndLine    int
	Modifiers  types.Modifiers
	Visibility types.Visibility
	Doc        string
	Bases      []string
	Members    []*Member

	// Module marks the synthetic container holding a file's free functions.
	Module bool
}

// QualifiedName joins namespace and name.
func (t *Type) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Impl records that Owner implements Base outside Owner's declaration, as
// Rust trait impls do.
type Impl struct {
	Owner string
	Base  string
}

// Result is the declaration tree of one file.
type Result struct {
	Package  string
	Types    []*Type
	Detached []*Member
	Impls    []Impl
}

// Analyzer turns one file's text into declarations. Implementations must be
// safe for concurrent use.
type Analyzer interface {
	Language() types.Language
	Extensions() []string
	Analyze(path string, src []byte) (*Result, error)
}

// Registry selects an analyzer by file extension.
type Registry struct {
	mu    sync.RWMutex
	byExt map[string]Analyzer
}

func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byExt: make(map[string]Analyzer)}
	for _, a := range analyzers {
		r.Register(a)
	}
	return r
}

// DefaultRegistry contains every built-in analyzer.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewCSharpAnalyzer(),
		NewGoAnalyzer(),
		NewJavaAnalyzer(),
		NewJavaScriptAnalyzer(),
		NewTypeScriptAnalyzer(),
		NewPythonAnalyzer(),
		NewRustAnalyzer(),
		NewPHPAnalyzer(),
	)
}

// Register adds a or replaces the analyzer for its extensions.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range a.Extensions() {
		r.byExt[strings.ToLower(ext)] = a
	}
}

// For returns the analyzer registered for path's extension.
func (r *Registry) For(path string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return a, ok
}

// moduleType returns the synthetic type holding free functions, creating it
// on first use.
func moduleType(res *Result, name string, line int) *Type {
	for _, t := range res.Types {
		if t.Module {
			return t
		}
	}
	t := &Type{
		Name:       name,
		Namespace:  res.Package,
		Kind:       types.KindClass,
		StartLine:  line,
		EndLine:    line,
		Modifiers:  types.ModStatic,
		Visibility: types.VisibilityPublic,
		Module:     true,
	}
	res.Types = append(res.Types, t)
	return t
}

// addFreeFunction attaches m to the module type and widens its line span.
func addFreeFunction(res *Result, moduleName string, m *Member) {
	mod := moduleType(res, moduleName, m.StartLine)
	m.Modifiers |= types.ModStatic
	mod.Members = append(mod.Members, m)
	if m.StartLine < mod.StartLine {
		mod.StartLine = m.StartLine
	}
	if m.EndLine > mod.EndLine {
		mod.EndLine = m.EndLine
	}
}

func fileStem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
