package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

type javaAnalyzer struct {
	tsBase
}

func NewJavaAnalyzer() Analyzer {
	return &javaAnalyzer{tsBase: newTSBase(tree_sitter_java.Language())}
}

func (a *javaAnalyzer) Language() types.Language { return types.LangJava }
func (a *javaAnalyzer) Extensions() []string     { return []string{".java"} }

var javaTypeKinds = map[string]types.TypeKind{
	"class_declaration":     types.KindClass,
	"record_declaration":    types.KindClass,
	"interface_declaration": types.KindInterface,
	"enum_declaration":      types.KindEnum,
}

func (a *javaAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		for _, c := range children(root) {
			if c.Kind() == "package_declaration" {
				if name := lastIdentifier(c, "scoped_identifier", "identifier"); name != nil {
					res.Package = text(name, src)
				}
				continue
			}
			if kind, ok := javaTypeKinds[c.Kind()]; ok {
				a.typeDecl(c, src, res.Package, kind, res)
			}
		}
	})
	return res, err
}

func (a *javaAnalyzer) typeDecl(n *tree_sitter.Node, src []byte, ns string, kind types.TypeKind, res *Result) {
	mods, vis := javaModifiers(n, src)
	t := &Type{
		Name:       field(n, "name", src),
		Namespace:  ns,
		Kind:       kind,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Modifiers:  mods,
		Visibility: vis,
		Doc:        leadingComments(n, src, isJavaComment),
	}
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, c := range children(sc) {
			if c.IsNamed() {
				t.Bases = append(t.Bases, squash(text(c, src)))
			}
		}
	}
	for _, holder := range []*tree_sitter.Node{n.ChildByFieldName("interfaces"), childOfKind(n, "extends_interfaces", "super_interfaces")} {
		if list := childOfKind(holder, "type_list"); list != nil {
			for _, c := range children(list) {
				if c.IsNamed() {
					t.Bases = appendUnique(t.Bases, squash(text(c, src)))
				}
			}
		}
	}
	res.Types = append(res.Types, t)

	body := n.ChildByFieldName("body")
	for _, c := range children(body) {
		if c.Kind() == "enum_body_declarations" {
			for _, ec := range children(c) {
				t.Members = append(t.Members, a.member(ec, src, t, res)...)
			}
			continue
		}
		t.Members = append(t.Members, a.member(c, src, t, res)...)
	}
	if kind == types.KindClass {
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range javaParameters(params, src) {
				t.Members = append(t.Members, &Member{
					Name:       p.Name,
					Kind:       types.KindField,
					Signature:  types.Signature{ReturnType: p.Type},
					StartLine:  startLine(params),
					EndLine:    endLine(params),
					Modifiers:  types.ModSealed,
					Visibility: types.VisibilityPrivate,
				})
			}
		}
	}
}

func (a *javaAnalyzer) member(n *tree_sitter.Node, src []byte, owner *Type, res *Result) []*Member {
	if kind, ok := javaTypeKinds[n.Kind()]; ok {
		a.typeDecl(n, src, joinName(owner.Namespace, owner.Name), kind, res)
		return nil
	}
	mods, vis := javaModifiers(n, src)
	m := &Member{
		Name:       field(n, "name", src),
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Modifiers:  mods,
		Visibility: vis,
		Doc:        leadingComments(n, src, isJavaComment),
	}
	if owner.Kind == types.KindInterface && vis == "" {
		m.Visibility = types.VisibilityPublic
	}

	switch n.Kind() {
	case "method_declaration":
		m.Kind = types.KindMethod
		m.Signature.ReturnType = squash(field(n, "type", src))
		if owner.Kind == types.KindInterface && n.ChildByFieldName("body") == nil && !mods.Has(types.ModStatic) {
			m.Modifiers |= types.ModAbstract
		}
		a.callable(n, src, m)
	case "constructor_declaration", "compact_constructor_declaration":
		m.Kind = types.KindConstructor
		if m.Name == "" {
			m.Name = owner.Name
		}
		a.callable(n, src, m)
	case "field_declaration", "constant_declaration":
		typ := squash(field(n, "type", src))
		if owner.Kind == types.KindInterface {
			m.Modifiers |= types.ModStatic | types.ModConst
		}
		var out []*Member
		for _, d := range children(n) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			f := *m
			f.Name = field(d, "name", src)
			f.Kind = types.KindField
			f.Signature = types.Signature{ReturnType: typ}
			f.Calls = walkCalls(d, src, javaCallee)
			out = append(out, &f)
		}
		return out
	case "enum_constant":
		m.Kind = types.KindField
		m.Modifiers |= types.ModStatic | types.ModConst
		m.Visibility = types.VisibilityPublic
		m.Signature.ReturnType = owner.Name
	default:
		return nil
	}
	if m.Name == "" {
		return nil
	}
	return []*Member{m}
}

func (a *javaAnalyzer) callable(n *tree_sitter.Node, src []byte, m *Member) {
	params := n.ChildByFieldName("parameters")
	m.Signature.ParameterList = squash(text(params, src))
	m.Signature.Parameters = javaParameters(params, src)
	m.Signature.TypeParams = text(n.ChildByFieldName("type_parameters"), src)
	if body := n.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		m.Calls = walkCalls(body, src, javaCallee)
	}
	m.Body = text(n, src)
}

func javaParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		switch p.Kind() {
		case "formal_parameter", "spread_parameter":
			name := field(p, "name", src)
			if name == "" {
				if d := childOfKind(p, "variable_declarator"); d != nil {
					name = field(d, "name", src)
				}
			}
			typ := squash(field(p, "type", src))
			if typ == "" {
				typ = squash(text(lastIdentifier(p, "type_identifier", "generic_type", "integral_type", "floating_point_type", "boolean_type", "array_type", "scoped_type_identifier"), src))
			}
			if p.Kind() == "spread_parameter" {
				typ += "..."
			}
			out = append(out, types.Parameter{Name: name, Type: typ})
		}
	}
	return out
}

func javaModifiers(n *tree_sitter.Node, src []byte) (types.Modifiers, types.Visibility) {
	var mods types.Modifiers
	var vis types.Visibility
	list := childOfKind(n, "modifiers")
	for _, c := range children(list) {
		word := strings.TrimSpace(text(c, src))
		if strings.HasPrefix(word, "@") {
			if word == "@Override" {
				mods |= types.ModOverride
			}
			continue
		}
		switch word {
		case "public", "private", "protected":
			vis = types.Visibility(word)
		default:
			mods |= types.ParseModifier(word)
		}
	}
	if mods.Has(types.ModStatic) && mods.Has(types.ModSealed) {
		// static final fields are constants
		mods |= types.ModConst
	}
	return mods, vis
}

func javaCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "method_invocation" {
		return "", nil
	}
	name := n.ChildByFieldName("name")
	return text(name, src), name
}

func isJavaComment(kind string) bool {
	return kind == "line_comment" || kind == "block_comment" || kind == "comment"
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
