package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// phpAnalyzer reports classes, interfaces, traits and enums. Namespaces
// written with backslashes are stored dot separated so qualified names look
// the same across languages.
type phpAnalyzer struct {
	tsBase
}

func NewPHPAnalyzer() Analyzer {
	return &phpAnalyzer{tsBase: newTSBase(tree_sitter_php.LanguagePHP())}
}

func (a *phpAnalyzer) Language() types.Language { return types.LangPHP }
func (a *phpAnalyzer) Extensions() []string     { return []string{".php"} }

var phpTypeKinds = map[string]types.TypeKind{
	"class_declaration":     types.KindClass,
	"trait_declaration":     types.KindClass,
	"interface_declaration": types.KindInterface,
	"enum_declaration":      types.KindEnum,
}

func (a *phpAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		a.statements(root, src, path, res)
	})
	return res, err
}

func (a *phpAnalyzer) statements(n *tree_sitter.Node, src []byte, path string, res *Result) {
	for _, c := range children(n) {
		switch c.Kind() {
		case "namespace_definition":
			res.Package = phpNamespace(field(c, "name", src))
			if body := c.ChildByFieldName("body"); body != nil {
				a.statements(body, src, path, res)
			}
		case "function_definition":
			m := a.callable(c, src)
			m.Visibility = types.VisibilityPublic
			addFreeFunction(res, fileStem(path), m)
		default:
			if kind, ok := phpTypeKinds[c.Kind()]; ok {
				res.Types = append(res.Types, a.typeDecl(c, src, res.Package, kind))
			}
		}
	}
}

func (a *phpAnalyzer) typeDecl(n *tree_sitter.Node, src []byte, ns string, kind types.TypeKind) *Type {
	mods, _ := phpModifiers(n, src)
	t := &Type{
		Name:       field(n, "name", src),
		Namespace:  ns,
		Kind:       kind,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Modifiers:  mods,
		Visibility: types.VisibilityPublic,
		Doc:        leadingComments(n, src, isPHPComment),
	}
	for _, clause := range children(n) {
		if clause.Kind() != "base_clause" && clause.Kind() != "class_interface_clause" {
			continue
		}
		for _, b := range children(clause) {
			if b.Kind() == "name" || b.Kind() == "qualified_name" {
				t.Bases = appendUnique(t.Bases, phpSimpleName(text(b, src)))
			}
		}
	}

	for _, c := range children(n.ChildByFieldName("body")) {
		switch c.Kind() {
		case "method_declaration":
			m := a.callable(c, src)
			m.Modifiers, m.Visibility = phpModifiers(c, src)
			if m.Name == "__construct" {
				m.Kind = types.KindConstructor
			}
			if kind == types.KindInterface {
				m.Modifiers |= types.ModAbstract
			}
			t.Members = append(t.Members, m)
		case "property_declaration":
			mods, vis := phpModifiers(c, src)
			typ := squash(field(c, "type", src))
			for _, el := range children(c) {
				if el.Kind() != "property_element" {
					continue
				}
				t.Members = append(t.Members, &Member{
					Name:       strings.TrimPrefix(text(childOfKind(el, "variable_name"), src), "$"),
					Kind:       types.KindProperty,
					Signature:  types.Signature{ReturnType: typ},
					StartLine:  startLine(c),
					EndLine:    endLine(c),
					Modifiers:  mods,
					Visibility: vis,
					Doc:        leadingComments(c, src, isPHPComment),
				})
			}
		case "const_declaration":
			_, vis := phpModifiers(c, src)
			for _, el := range children(c) {
				if el.Kind() != "const_element" {
					continue
				}
				t.Members = append(t.Members, &Member{
					Name:       text(childOfKind(el, "name"), src),
					Kind:       types.KindField,
					StartLine:  startLine(c),
					EndLine:    endLine(c),
					Modifiers:  types.ModStatic | types.ModConst,
					Visibility: vis,
				})
			}
		case "enum_case":
			t.Members = append(t.Members, &Member{
				Name:       field(c, "name", src),
				Kind:       types.KindField,
				Signature:  types.Signature{ReturnType: t.Name},
				StartLine:  startLine(c),
				EndLine:    endLine(c),
				Modifiers:  types.ModStatic | types.ModConst,
				Visibility: types.VisibilityPublic,
			})
		case "use_declaration":
			// trait composition
			for _, u := range children(c) {
				if u.Kind() == "name" || u.Kind() == "qualified_name" {
					t.Bases = appendUnique(t.Bases, phpSimpleName(text(u, src)))
				}
			}
		}
	}
	return t
}

func (a *phpAnalyzer) callable(n *tree_sitter.Node, src []byte) *Member {
	params := n.ChildByFieldName("parameters")
	m := &Member{
		Name: field(n, "name", src),
		Kind: types.KindMethod,
		Signature: types.Signature{
			ParameterList: squash(text(params, src)),
			Parameters:    phpParameters(params, src),
			ReturnType:    squash(field(n, "return_type", src)),
		},
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Doc:       leadingComments(n, src, isPHPComment),
		Body:      text(n, src),
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		m.Calls = walkCalls(body, src, phpCallee)
	}
	return m
}

func phpParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		switch p.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
			out = append(out, types.Parameter{
				Name: strings.TrimPrefix(field(p, "name", src), "$"),
				Type: squash(field(p, "type", src)),
			})
		}
	}
	return out
}

// phpModifiers reads visibility, static, abstract, final and readonly
// keywords. Members without a visibility keyword are public.
func phpModifiers(n *tree_sitter.Node, src []byte) (types.Modifiers, types.Visibility) {
	var mods types.Modifiers
	vis := types.VisibilityPublic
	for _, c := range children(n) {
		kind := c.Kind()
		if !strings.HasSuffix(kind, "_modifier") {
			continue
		}
		word := strings.ToLower(strings.TrimSpace(text(c, src)))
		if kind == "visibility_modifier" {
			vis = types.Visibility(word)
			continue
		}
		mods |= types.ParseModifier(word)
	}
	return mods, vis
}

func phpCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	switch n.Kind() {
	case "function_call_expression":
		fn := n.ChildByFieldName("function")
		if fn == nil || (fn.Kind() != "name" && fn.Kind() != "qualified_name") {
			return "", nil
		}
		return phpSimpleName(text(fn, src)), fn
	case "member_call_expression", "nullsafe_member_call_expression", "scoped_call_expression":
		name := n.ChildByFieldName("name")
		if name == nil || name.Kind() != "name" {
			return "", nil
		}
		return text(name, src), name
	}
	return "", nil
}

func phpNamespace(name string) string {
	return strings.ReplaceAll(strings.Trim(name, `\`), `\`, ".")
}

func phpSimpleName(name string) string {
	if i := strings.LastIndex(name, `\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isPHPComment(kind string) bool {
	return kind == "comment"
}
