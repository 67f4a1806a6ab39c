package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// ecmaAnalyzer handles JavaScript and TypeScript. Top-level functions and
// arrow-function constants are grouped under a module type named after the file.
type ecmaAnalyzer struct {
	ts   tsBase
	tsx  tsBase
	lang types.Language
	exts []string
}

func NewJavaScriptAnalyzer() Analyzer {
	base := newTSBase(tree_sitter_javascript.Language())
	return &ecmaAnalyzer{
		ts:   base,
		tsx:  base,
		lang: types.LangJavaScript,
		exts: []string{".js", ".jsx", ".mjs", ".cjs"},
	}
}

func NewTypeScriptAnalyzer() Analyzer {
	return &ecmaAnalyzer{
		ts:   newTSBase(tree_sitter_typescript.LanguageTypescript()),
		tsx:  newTSBase(tree_sitter_typescript.LanguageTSX()),
		lang: types.LangTypeScript,
		exts: []string{".ts", ".tsx", ".mts", ".cts"},
	}
}

func (a *ecmaAnalyzer) Language() types.Language { return a.lang }
func (a *ecmaAnalyzer) Extensions() []string     { return a.exts }

func (a *ecmaAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	base := a.ts
	if strings.HasSuffix(strings.ToLower(path), ".tsx") {
		base = a.tsx
	}
	res := &Result{}
	moduleName := fileStem(path)
	err := base.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		for _, c := range children(root) {
			a.topLevel(c, src, res, moduleName, false)
		}
	})
	return res, err
}

func (a *ecmaAnalyzer) topLevel(n *tree_sitter.Node, src []byte, res *Result, moduleName string, exported bool) {
	switch n.Kind() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			a.topLevel(decl, src, res, moduleName, true)
			return
		}
		for _, c := range children(n) {
			if c.IsNamed() {
				a.topLevel(c, src, res, moduleName, true)
			}
		}
	case "class_declaration", "abstract_class_declaration", "class":
		a.class(n, src, res, exported)
	case "interface_declaration":
		a.iface(n, src, res, exported)
	case "enum_declaration":
		t := a.newType(n, src, types.KindEnum, exported)
		for _, c := range children(n.ChildByFieldName("body")) {
			name := ""
			switch c.Kind() {
			case "property_identifier":
				name = text(c, src)
			case "enum_assignment":
				name = field(c, "name", src)
			}
			if name != "" {
				t.Members = append(t.Members, &Member{
					Name:       name,
					Kind:       types.KindField,
					Signature:  types.Signature{ReturnType: t.Name},
					StartLine:  startLine(c),
					EndLine:    endLine(c),
					Modifiers:  types.ModStatic | types.ModConst,
					Visibility: types.VisibilityPublic,
				})
			}
		}
		res.Types = append(res.Types, t)
	case "function_declaration", "generator_function_declaration":
		m := a.function(n, field(n, "name", src), n, src)
		m.Visibility = exportVisibility(exported)
		addFreeFunction(res, moduleName, m)
	case "lexical_declaration", "variable_declaration":
		for _, d := range children(n) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			value := d.ChildByFieldName("value")
			if value == nil {
				continue
			}
			switch value.Kind() {
			case "arrow_function", "function_expression", "function", "generator_function":
				m := a.function(value, field(d, "name", src), n, src)
				m.Visibility = exportVisibility(exported)
				addFreeFunction(res, moduleName, m)
			case "class":
				t := a.class(value, src, res, exported)
				if t.Name == "" {
					t.Name = field(d, "name", src)
				}
			}
		}
	}
}

func (a *ecmaAnalyzer) newType(n *tree_sitter.Node, src []byte, kind types.TypeKind, exported bool) *Type {
	t := &Type{
		Name:       field(n, "name", src),
		Kind:       kind,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Visibility: exportVisibility(exported),
		Doc:        ecmaDoc(n, src),
	}
	if exported {
		t.Modifiers |= types.ModExported
	}
	if n.Kind() == "abstract_class_declaration" {
		t.Modifiers |= types.ModAbstract
	}
	return t
}

func (a *ecmaAnalyzer) class(n *tree_sitter.Node, src []byte, res *Result, exported bool) *Type {
	t := a.newType(n, src, types.KindClass, exported)
	if heritage := childOfKind(n, "class_heritage"); heritage != nil {
		for _, clause := range children(heritage) {
			switch clause.Kind() {
			case "extends_clause", "implements_clause":
				for _, c := range children(clause) {
					if c.IsNamed() && c.Kind() != "type_arguments" {
						t.Bases = append(t.Bases, squash(text(c, src)))
					}
				}
			default:
				// JavaScript: class_heritage holds the expression directly
				if clause.IsNamed() {
					t.Bases = append(t.Bases, squash(text(clause, src)))
				}
			}
		}
	}
	res.Types = append(res.Types, t)

	for _, c := range children(n.ChildByFieldName("body")) {
		switch c.Kind() {
		case "method_definition", "abstract_method_signature", "method_signature":
			name := field(c, "name", src)
			m := a.function(c, name, c, src)
			m.Modifiers |= ecmaModifiers(c)
			m.Visibility = ecmaAccessibility(c, src, name)
			switch {
			case name == "constructor":
				m.Kind = types.KindConstructor
			case hasChildToken(c, "get") || hasChildToken(c, "set"):
				m.Kind = types.KindProperty
				if hasChildToken(c, "get") {
					m.Signature.Accessors = append(m.Signature.Accessors, "get")
				}
				if hasChildToken(c, "set") {
					m.Signature.Accessors = append(m.Signature.Accessors, "set")
				}
			}
			if c.Kind() == "abstract_method_signature" {
				m.Modifiers |= types.ModAbstract
			}
			t.Members = append(t.Members, m)
		case "field_definition", "public_field_definition":
			name := field(c, "property", src)
			if name == "" {
				name = field(c, "name", src)
			}
			t.Members = append(t.Members, &Member{
				Name:       name,
				Kind:       types.KindField,
				Signature:  types.Signature{ReturnType: typeAnnotation(c.ChildByFieldName("type"), src)},
				StartLine:  startLine(c),
				EndLine:    endLine(c),
				Modifiers:  ecmaModifiers(c),
				Visibility: ecmaAccessibility(c, src, name),
				Doc:        ecmaDoc(c, src),
				Calls:      walkCalls(c, src, ecmaCallee),
			})
		}
	}
	return t
}

func (a *ecmaAnalyzer) iface(n *tree_sitter.Node, src []byte, res *Result, exported bool) {
	t := a.newType(n, src, types.KindInterface, exported)
	if ext := childOfKind(n, "extends_type_clause"); ext != nil {
		for _, c := range children(ext) {
			if c.IsNamed() {
				t.Bases = append(t.Bases, squash(text(c, src)))
			}
		}
	}
	for _, c := range children(n.ChildByFieldName("body")) {
		name := field(c, "name", src)
		switch c.Kind() {
		case "method_signature":
			m := a.function(c, name, c, src)
			m.Modifiers |= types.ModAbstract
			m.Visibility = types.VisibilityPublic
			t.Members = append(t.Members, m)
		case "property_signature":
			t.Members = append(t.Members, &Member{
				Name:       name,
				Kind:       types.KindProperty,
				Signature:  types.Signature{ReturnType: typeAnnotation(c.ChildByFieldName("type"), src)},
				StartLine:  startLine(c),
				EndLine:    endLine(c),
				Visibility: types.VisibilityPublic,
				Doc:        ecmaDoc(c, src),
			})
		}
	}
	res.Types = append(res.Types, t)
}

// function builds a method member from a function-like node. decl is the
// node whose span and comments describe the declaration.
func (a *ecmaAnalyzer) function(fn *tree_sitter.Node, name string, decl *tree_sitter.Node, src []byte) *Member {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		params = fn.ChildByFieldName("parameter")
	}
	m := &Member{
		Name: name,
		Kind: types.KindMethod,
		Signature: types.Signature{
			ParameterList: squash(text(params, src)),
			Parameters:    ecmaParameters(params, src),
			ReturnType:    typeAnnotation(fn.ChildByFieldName("return_type"), src),
			TypeParams:    text(fn.ChildByFieldName("type_parameters"), src),
		},
		StartLine: startLine(decl),
		EndLine:   endLine(decl),
		Doc:       ecmaDoc(decl, src),
		Body:      text(decl, src),
	}
	if hasChildToken(fn, "async") {
		m.Modifiers |= types.ModAsync
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		if body.Kind() != "statement_block" {
			m.BodyStyle = types.BodyExpression
		}
		m.Calls = walkCalls(body, src, ecmaCallee)
	}
	return m
}

func ecmaParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	if params == nil {
		return nil
	}
	if params.Kind() == "identifier" {
		return []types.Parameter{{Name: text(params, src)}}
	}
	var out []types.Parameter
	for _, p := range children(params) {
		switch p.Kind() {
		case "identifier":
			out = append(out, types.Parameter{Name: text(p, src)})
		case "required_parameter", "optional_parameter":
			out = append(out, types.Parameter{
				Name: field(p, "pattern", src),
				Type: typeAnnotation(p.ChildByFieldName("type"), src),
			})
		case "assignment_pattern":
			out = append(out, types.Parameter{Name: field(p, "left", src)})
		case "rest_pattern", "object_pattern", "array_pattern":
			out = append(out, types.Parameter{Name: squash(text(p, src))})
		}
	}
	return out
}

func typeAnnotation(n *tree_sitter.Node, src []byte) string {
	return strings.TrimSpace(strings.TrimPrefix(squash(text(n, src)), ":"))
}

func ecmaModifiers(n *tree_sitter.Node) types.Modifiers {
	var mods types.Modifiers
	for _, c := range children(n) {
		switch c.Kind() {
		case "static":
			mods |= types.ModStatic
		case "async":
			mods |= types.ModAsync
		case "abstract":
			mods |= types.ModAbstract
		case "readonly":
			mods |= types.ModReadonly
		case "override_modifier", "override":
			mods |= types.ModOverride
		}
	}
	return mods
}

func ecmaAccessibility(n *tree_sitter.Node, src []byte, name string) types.Visibility {
	if acc := childOfKind(n, "accessibility_modifier"); acc != nil {
		return types.Visibility(strings.TrimSpace(text(acc, src)))
	}
	if strings.HasPrefix(name, "#") {
		return types.VisibilityPrivate
	}
	return types.VisibilityPublic
}

func exportVisibility(exported bool) types.Visibility {
	if exported {
		return types.VisibilityPublic
	}
	return types.VisibilityInternal
}

func ecmaDoc(n *tree_sitter.Node, src []byte) string {
	target := n
	if p := n.Parent(); p != nil && p.Kind() == "export_statement" {
		target = p
	}
	return leadingComments(target, src, func(kind string) bool { return kind == "comment" })
}

func ecmaCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "call_expression" {
		return "", nil
	}
	fn := n.ChildByFieldName("function")
	for fn != nil {
		switch fn.Kind() {
		case "identifier", "property_identifier", "private_property_identifier":
			return text(fn, src), fn
		case "member_expression":
			fn = fn.ChildByFieldName("property")
		case "parenthesized_expression", "non_null_expression":
			fn = fn.NamedChild(0)
		default:
			return "", nil
		}
	}
	return "", nil
}
