package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// goAnalyzer reports struct and interface types, their methods, and free
// functions grouped under a module type named after the package. Methods
// whose receiver type lives in another file are returned as detached.
type goAnalyzer struct {
	tsBase
}

func NewGoAnalyzer() Analyzer {
	return &goAnalyzer{tsBase: newTSBase(tree_sitter_go.Language())}
}

func (a *goAnalyzer) Language() types.Language { return types.LangGo }
func (a *goAnalyzer) Extensions() []string     { return []string{".go"} }

func (a *goAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		if pkg := childOfKind(root, "package_clause"); pkg != nil {
			res.Package = text(childOfKind(pkg, "package_identifier"), src)
		}
		byName := make(map[string]*Type)
		var methods []*Member

		for _, c := range children(root) {
			switch c.Kind() {
			case "type_declaration":
				for _, spec := range children(c) {
					if spec.Kind() != "type_spec" {
						continue
					}
					t := a.typeSpec(spec, src, res.Package)
					if t == nil {
						continue
					}
					if t.Doc == "" {
						t.Doc = leadingComments(c, src, isGoComment)
					}
					res.Types = append(res.Types, t)
					byName[t.Name] = t
				}
			case "function_declaration":
				m := a.function(c, src)
				name := res.Package
				if name == "" {
					name = fileStem(path)
				}
				addFreeFunction(res, name, m)
			case "method_declaration":
				methods = append(methods, a.function(c, src))
			}
		}

		for _, m := range methods {
			if t, ok := byName[m.Owner]; ok {
				t.Members = append(t.Members, m)
				continue
			}
			res.Detached = append(res.Detached, m)
		}
		// attached members no longer need the owner hint
		for _, t := range res.Types {
			for _, m := range t.Members {
				m.Owner = ""
			}
		}
	})
	return res, err
}

func (a *goAnalyzer) typeSpec(spec *tree_sitter.Node, src []byte, pkg string) *Type {
	name := field(spec, "name", src)
	body := spec.ChildByFieldName("type")
	if name == "" || body == nil {
		return nil
	}
	t := &Type{
		Name:       name,
		Namespace:  pkg,
		StartLine:  startLine(spec),
		EndLine:    endLine(spec),
		Visibility: goVisibility(name),
		Doc:        leadingComments(spec, src, isGoComment),
	}
	switch body.Kind() {
	case "struct_type":
		t.Kind = types.KindStruct
		for _, fl := range children(childOfKind(body, "field_declaration_list")) {
			if fl.Kind() != "field_declaration" {
				continue
			}
			typ := squash(field(fl, "type", src))
			names := goFieldNames(fl, src)
			if len(names) == 0 {
				// embedded field
				t.Bases = append(t.Bases, strings.TrimPrefix(typ, "*"))
				continue
			}
			for _, n := range names {
				t.Members = append(t.Members, &Member{
					Name:       n,
					Kind:       types.KindField,
					Signature:  types.Signature{ReturnType: typ},
					StartLine:  startLine(fl),
					EndLine:    endLine(fl),
					Visibility: goVisibility(n),
					Doc:        leadingComments(fl, src, isGoComment),
				})
			}
		}
	case "interface_type":
		t.Kind = types.KindInterface
		for _, el := range children(body) {
			switch el.Kind() {
			case "method_elem", "method_spec":
				mname := field(el, "name", src)
				params := el.ChildByFieldName("parameters")
				t.Members = append(t.Members, &Member{
					Name: mname,
					Kind: types.KindMethod,
					Signature: types.Signature{
						ParameterList: squash(text(params, src)),
						Parameters:    goParameters(params, src),
						ReturnType:    squash(field(el, "result", src)),
					},
					StartLine:  startLine(el),
					EndLine:    endLine(el),
					Modifiers:  types.ModAbstract,
					Visibility: goVisibility(mname),
					Doc:        leadingComments(el, src, isGoComment),
				})
			case "type_elem", "constraint_elem", "type_identifier", "qualified_type":
				t.Bases = append(t.Bases, squash(text(el, src)))
			}
		}
	default:
		// named non-struct types (type Celsius float64) can still carry methods
		t.Kind = types.KindStruct
	}
	return t
}

func (a *goAnalyzer) function(n *tree_sitter.Node, src []byte) *Member {
	name := field(n, "name", src)
	params := n.ChildByFieldName("parameters")
	m := &Member{
		Name: name,
		Kind: types.KindMethod,
		Signature: types.Signature{
			ParameterList: squash(text(params, src)),
			Parameters:    goParameters(params, src),
			ReturnType:    squash(field(n, "result", src)),
			TypeParams:    text(n.ChildByFieldName("type_parameters"), src),
		},
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Visibility: goVisibility(name),
		Doc:        leadingComments(n, src, isGoComment),
		Body:       text(n, src),
	}
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		m.Signature.Receiver = squash(text(recv, src))
		m.Owner = goReceiverType(recv, src)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		m.Calls = walkCalls(body, src, goCallee)
	}
	return m
}

// goReceiverType extracts T from (r *T), (r T[K]) or (T).
func goReceiverType(recv *tree_sitter.Node, src []byte) string {
	for _, p := range children(recv) {
		if p.Kind() != "parameter_declaration" {
			continue
		}
		typ := squash(field(p, "type", src))
		typ = strings.TrimPrefix(typ, "*")
		if i := strings.Index(typ, "["); i >= 0 {
			typ = typ[:i]
		}
		return strings.TrimSpace(typ)
	}
	return ""
}

func goFieldNames(fl *tree_sitter.Node, src []byte) []string {
	var names []string
	for _, c := range children(fl) {
		if c.Kind() == "field_identifier" {
			names = append(names, text(c, src))
		}
	}
	return names
}

func goParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		if p.Kind() != "parameter_declaration" && p.Kind() != "variadic_parameter_declaration" {
			continue
		}
		typ := squash(field(p, "type", src))
		if p.Kind() == "variadic_parameter_declaration" {
			typ = "..." + typ
		}
		var names []string
		for _, c := range children(p) {
			if c.Kind() == "identifier" {
				names = append(names, text(c, src))
			}
		}
		if len(names) == 0 {
			out = append(out, types.Parameter{Type: typ})
		}
		for _, n := range names {
			out = append(out, types.Parameter{Name: n, Type: typ})
		}
	}
	return out
}

func goCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "call_expression" {
		return "", nil
	}
	fn := n.ChildByFieldName("function")
	for fn != nil {
		switch fn.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			return text(fn, src), fn
		case "selector_expression":
			fn = fn.ChildByFieldName("field")
		case "index_expression":
			// explicit instantiation: Map[int](xs)
			fn = fn.ChildByFieldName("operand")
		case "generic_type":
			fn = fn.ChildByFieldName("type")
		case "parenthesized_expression":
			fn = fn.NamedChild(0)
		default:
			return "", nil
		}
	}
	return "", nil
}

func goVisibility(name string) types.Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return types.VisibilityPublic
	}
	return types.VisibilityPrivate
}

func isGoComment(kind string) bool {
	return kind == "comment"
}
