package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

type csharpAnalyzer struct {
	tsBase
}

func NewCSharpAnalyzer() Analyzer {
	return &csharpAnalyzer{tsBase: newTSBase(tree_sitter_csharp.Language())}
}

func (a *csharpAnalyzer) Language() types.Language { return types.LangCSharp }
func (a *csharpAnalyzer) Extensions() []string     { return []string{".cs"} }

var csharpTypeKinds = map[string]types.TypeKind{
	"class_declaration":         types.KindClass,
	"record_declaration":        types.KindClass,
	"interface_declaration":     types.KindInterface,
	"struct_declaration":        types.KindStruct,
	"record_struct_declaration": types.KindStruct,
	"enum_declaration":          types.KindEnum,
}

func (a *csharpAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		a.declarations(root, src, "", res)
	})
	return res, err
}

// declarations walks namespace bodies and type bodies. Nested types are
// reported as their own types with a dotted namespace.
func (a *csharpAnalyzer) declarations(n *tree_sitter.Node, src []byte, ns string, res *Result) {
	for _, c := range children(n) {
		switch kind := c.Kind(); kind {
		case "namespace_declaration":
			inner := joinName(ns, field(c, "name", src))
			a.declarations(c.ChildByFieldName("body"), src, inner, res)
		case "file_scoped_namespace_declaration":
			// later siblings belong to the namespace; newer grammars nest them
			ns = joinName(ns, field(c, "name", src))
			a.declarations(c, src, ns, res)
		case "declaration_list":
			a.declarations(c, src, ns, res)
		default:
			if tk, ok := csharpTypeKinds[kind]; ok {
				a.typeDecl(c, src, ns, tk, res)
			}
		}
	}
}

func (a *csharpAnalyzer) typeDecl(n *tree_sitter.Node, src []byte, ns string, kind types.TypeKind, res *Result) {
	mods, vis := csharpModifiers(n, src)
	t := &Type{
		Name:       field(n, "name", src),
		Namespace:  ns,
		Kind:       kind,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Modifiers:  mods,
		Visibility: vis,
		Doc:        leadingComments(n, src, isCSharpComment),
	}
	if bases := childOfKind(n, "base_list"); bases != nil {
		for _, b := range children(bases) {
			if b.IsNamed() && b.Kind() != "argument_list" {
				t.Bases = append(t.Bases, squash(text(b, src)))
			}
		}
	}
	res.Types = append(res.Types, t)

	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfKind(n, "declaration_list", "enum_member_declaration_list")
	}
	for _, c := range children(body) {
		if tk, ok := csharpTypeKinds[c.Kind()]; ok {
			a.typeDecl(c, src, joinName(ns, t.Name), tk, res)
			continue
		}
		t.Members = append(t.Members, a.members(c, src, t)...)
	}
	if kind == types.KindClass && len(t.Members) == 0 && t.Name != "" {
		// positional records declare properties in their parameter list
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range csharpParameters(params, src) {
				t.Members = append(t.Members, &Member{
					Name:       p.Name,
					Kind:       types.KindProperty,
					Signature:  types.Signature{ReturnType: p.Type, Accessors: []string{"get", "init"}},
					StartLine:  startLine(params),
					EndLine:    endLine(params),
					Visibility: types.VisibilityPublic,
				})
			}
		}
	}
}

func (a *csharpAnalyzer) members(n *tree_sitter.Node, src []byte, owner *Type) []*Member {
	mods, vis := csharpModifiers(n, src)
	if owner.Kind == types.KindInterface && vis == "" {
		vis = types.VisibilityPublic
		if n.ChildByFieldName("body") == nil && !mods.Has(types.ModStatic) {
			mods |= types.ModAbstract
		}
	}
	m := &Member{
		Name:       field(n, "name", src),
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Modifiers:  mods,
		Visibility: vis,
		Doc:        leadingComments(n, src, isCSharpComment),
	}

	switch n.Kind() {
	case "method_declaration", "local_function_statement":
		m.Kind = types.KindMethod
		ret := n.ChildByFieldName("returns")
		if ret == nil {
			ret = n.ChildByFieldName("type")
		}
		m.Signature.ReturnType = squash(text(ret, src))
		a.callable(n, src, m)
	case "constructor_declaration":
		m.Kind = types.KindConstructor
		a.callable(n, src, m)
	case "property_declaration", "indexer_declaration":
		m.Kind = types.KindProperty
		if m.Name == "" {
			m.Name = "this"
		}
		m.Signature.ReturnType = squash(field(n, "type", src))
		if acc := childOfKind(n, "accessor_list"); acc != nil {
			for _, ad := range children(acc) {
				if ad.Kind() != "accessor_declaration" {
					continue
				}
				for _, tok := range children(ad) {
					switch tok.Kind() {
					case "get", "set", "init", "add", "remove":
						m.Signature.Accessors = append(m.Signature.Accessors, tok.Kind())
					}
				}
				m.Calls = append(m.Calls, walkCalls(ad, src, csharpCallee)...)
			}
		} else if arrow := childOfKind(n, "arrow_expression_clause"); arrow != nil {
			m.Signature.Accessors = []string{"get"}
			m.Calls = walkCalls(arrow, src, csharpCallee)
		}
		m.Body = text(n, src)
	case "field_declaration", "event_field_declaration":
		decl := childOfKind(n, "variable_declaration")
		if decl == nil {
			return nil
		}
		typ := squash(field(decl, "type", src))
		var out []*Member
		for _, v := range children(decl) {
			if v.Kind() != "variable_declarator" {
				continue
			}
			name := field(v, "name", src)
			if name == "" {
				name = text(childOfKind(v, "identifier"), src)
			}
			f := *m
			f.Name = name
			f.Kind = types.KindField
			f.Signature = types.Signature{ReturnType: typ}
			f.Calls = walkCalls(v, src, csharpCallee)
			out = append(out, &f)
		}
		return out
	case "enum_member_declaration":
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

func (a *csharpAnalyzer) callable(n *tree_sitter.Node, src []byte, m *Member) {
	params := n.ChildByFieldName("parameters")
	m.Signature.ParameterList = squash(text(params, src))
	m.Signature.Parameters = csharpParameters(params, src)
	m.Signature.TypeParams = text(n.ChildByFieldName("type_parameters"), src)
	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfKind(n, "block", "arrow_expression_clause")
	}
	if body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		if body.Kind() == "arrow_expression_clause" {
			m.BodyStyle = types.BodyExpression
		}
		m.Calls = walkCalls(body, src, csharpCallee)
	}
	m.Body = text(n, src)
}

func csharpParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		if p.Kind() != "parameter" {
			continue
		}
		out = append(out, types.Parameter{
			Name: field(p, "name", src),
			Type: squash(field(p, "type", src)),
		})
	}
	return out
}

func csharpModifiers(n *tree_sitter.Node, src []byte) (types.Modifiers, types.Visibility) {
	var mods types.Modifiers
	var vis []string
	for _, c := range children(n) {
		if c.Kind() != "modifier" {
			continue
		}
		word := strings.TrimSpace(text(c, src))
		switch word {
		case "public", "private", "protected", "internal":
			vis = append(vis, word)
		default:
			mods |= types.ParseModifier(word)
		}
	}
	switch {
	case len(vis) == 0:
		return mods, ""
	case len(vis) > 1:
		// protected internal / private protected
		return mods, types.VisibilityProtected
	default:
		return mods, types.Visibility(vis[0])
	}
}

// csharpCallee reports the invoked simple name of an invocation_expression.
func csharpCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "invocation_expression" {
		return "", nil
	}
	fn := n.ChildByFieldName("function")
	for fn != nil {
		switch fn.Kind() {
		case "identifier":
			return text(fn, src), fn
		case "generic_name":
			id := childOfKind(fn, "identifier")
			return text(id, src), id
		case "member_access_expression", "member_binding_expression", "qualified_name":
			name := fn.ChildByFieldName("name")
			if name == nil {
				name = lastIdentifier(fn, "identifier", "generic_name")
			}
			fn = name
		default:
			return "", nil
		}
	}
	return "", nil
}

func isCSharpComment(kind string) bool {
	return kind == "comment"
}

func joinName(ns, name string) string {
	switch {
	case ns == "":
		return name
	case name == "":
		return ns
	default:
		return ns + "." + name
	}
}
