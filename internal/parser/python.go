package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

type pythonAnalyzer struct {
	tsBase
}

func NewPythonAnalyzer() Analyzer {
	return &pythonAnalyzer{tsBase: newTSBase(tree_sitter_python.Language())}
}

func (a *pythonAnalyzer) Language() types.Language { return types.LangPython }
func (a *pythonAnalyzer) Extensions() []string     { return []string{".py", ".pyi"} }

func (a *pythonAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	moduleName := fileStem(path)
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		for _, c := range children(root) {
			def, decorators := unwrapDecorated(c, src)
			switch def.Kind() {
			case "class_definition":
				a.class(def, c, decorators, src, "", res)
			case "function_definition":
				m := a.function(def, c, decorators, src)
				addFreeFunction(res, moduleName, m)
			}
		}
	})
	return res, err
}

func (a *pythonAnalyzer) class(n, decl *tree_sitter.Node, decorators []string, src []byte, ns string, res *Result) {
	name := field(n, "name", src)
	t := &Type{
		Name:       name,
		Namespace:  ns,
		Kind:       types.KindClass,
		StartLine:  startLine(decl),
		EndLine:    endLine(decl),
		Visibility: pythonVisibility(name),
		Doc:        pythonDocstring(n.ChildByFieldName("body"), src),
	}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for _, c := range children(sup) {
			if !c.IsNamed() || c.Kind() == "keyword_argument" {
				continue
			}
			base := text(c, src)
			t.Bases = append(t.Bases, base)
			switch types.SimpleName(base) {
			case "ABC", "Protocol":
				t.Kind = types.KindInterface
			case "Enum", "IntEnum", "StrEnum", "Flag":
				t.Kind = types.KindEnum
			}
		}
	}
	for _, d := range decorators {
		if d == "dataclass" {
			t.Kind = types.KindStruct
		}
	}
	res.Types = append(res.Types, t)

	for _, c := range children(n.ChildByFieldName("body")) {
		def, decs := unwrapDecorated(c, src)
		switch def.Kind() {
		case "function_definition":
			m := a.function(def, c, decs, src)
			if m.Name == "__init__" {
				m.Kind = types.KindConstructor
			}
			t.Members = append(t.Members, m)
		case "class_definition":
			a.class(def, c, decs, src, joinName(ns, name), res)
		case "expression_statement":
			// class attributes: name = value / name: type = value
			assign := childOfKind(c, "assignment")
			if assign == nil {
				continue
			}
			left := assign.ChildByFieldName("left")
			if left == nil || left.Kind() != "identifier" {
				continue
			}
			fname := text(left, src)
			mods := types.ModStatic
			if t.Kind == types.KindEnum {
				mods |= types.ModConst
			}
			t.Members = append(t.Members, &Member{
				Name:       fname,
				Kind:       types.KindField,
				Signature:  types.Signature{ReturnType: squash(field(assign, "type", src))},
				StartLine:  startLine(c),
				EndLine:    endLine(c),
				Modifiers:  mods,
				Visibility: pythonVisibility(fname),
			})
		}
	}
}

func (a *pythonAnalyzer) function(n, decl *tree_sitter.Node, decorators []string, src []byte) *Member {
	name := field(n, "name", src)
	params := n.ChildByFieldName("parameters")
	m := &Member{
		Name: name,
		Kind: types.KindMethod,
		Signature: types.Signature{
			ParameterList: squash(text(params, src)),
			Parameters:    pythonParameters(params, src),
			ReturnType:    squash(field(n, "return_type", src)),
		},
		StartLine:  startLine(decl),
		EndLine:    endLine(decl),
		Visibility: pythonVisibility(name),
		Body:       text(decl, src),
	}
	if hasChildToken(n, "async") {
		m.Modifiers |= types.ModAsync
	}
	for _, d := range decorators {
		switch d {
		case "staticmethod", "classmethod":
			m.Modifiers |= types.ModStatic
		case "abstractmethod", "abc.abstractmethod":
			m.Modifiers |= types.ModAbstract
		case "property":
			m.Kind = types.KindProperty
			m.Signature.Accessors = []string{"get"}
		case "override", "typing.override":
			m.Modifiers |= types.ModOverride
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyIndented
		m.Doc = pythonDocstring(body, src)
		m.Calls = walkCalls(body, src, pythonCallee)
	}
	return m
}

func unwrapDecorated(n *tree_sitter.Node, src []byte) (*tree_sitter.Node, []string) {
	if n.Kind() != "decorated_definition" {
		return n, nil
	}
	var decorators []string
	for _, c := range children(n) {
		if c.Kind() == "decorator" {
			d := strings.TrimPrefix(strings.TrimSpace(text(c, src)), "@")
			if i := strings.Index(d, "("); i >= 0 {
				d = d[:i]
			}
			decorators = append(decorators, d)
		}
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def, decorators
	}
	return n, decorators
}

func pythonParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		switch p.Kind() {
		case "identifier":
			out = append(out, types.Parameter{Name: text(p, src)})
		case "typed_parameter":
			name := text(childOfKind(p, "identifier", "list_splat_pattern", "dictionary_splat_pattern"), src)
			out = append(out, types.Parameter{Name: name, Type: squash(field(p, "type", src))})
		case "default_parameter", "typed_default_parameter":
			out = append(out, types.Parameter{Name: field(p, "name", src), Type: squash(field(p, "type", src))})
		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, types.Parameter{Name: text(p, src)})
		}
	}
	// drop the implicit receiver
	if len(out) > 0 && (out[0].Name == "self" || out[0].Name == "cls") {
		out = out[1:]
	}
	return out
}

func pythonDocstring(body *tree_sitter.Node, src []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	str := childOfKind(first, "string")
	if str == nil {
		return ""
	}
	doc := strings.TrimSpace(text(str, src))
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(doc, q) && strings.HasSuffix(doc, q) && len(doc) >= 2*len(q) {
			return strings.TrimSpace(doc[len(q) : len(doc)-len(q)])
		}
	}
	return doc
}

func pythonCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "call" {
		return "", nil
	}
	fn := n.ChildByFieldName("function")
	switch {
	case fn == nil:
		return "", nil
	case fn.Kind() == "identifier":
		return text(fn, src), fn
	case fn.Kind() == "attribute":
		attr := fn.ChildByFieldName("attribute")
		return text(attr, src), attr
	}
	return "", nil
}

func pythonVisibility(name string) types.Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return types.VisibilityPublic
	case strings.HasPrefix(name, "_"):
		return types.VisibilityPrivate
	default:
		return types.VisibilityPublic
	}
}
