package parser

import (
	"path/filepath"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// rustAnalyzer reports structs, enums and traits. Functions in impl blocks
// attach to the implementing type; when that type lives in another file of
// the same directory they are returned as detached, and trait impls are
// recorded in Result.Impls so the builder can fill in Bases.
type rustAnalyzer struct {
	tsBase
}

func NewRustAnalyzer() Analyzer {
	return &rustAnalyzer{tsBase: newTSBase(tree_sitter_rust.Language())}
}

func (a *rustAnalyzer) Language() types.Language { return types.LangRust }
func (a *rustAnalyzer) Extensions() []string     { return []string{".rs"} }

func (a *rustAnalyzer) Analyze(path string, src []byte) (*Result, error) {
	res := &Result{}
	err := a.parse(path, src, func(root *tree_sitter.Node, src []byte) {
		byName := make(map[string]*Type)
		var methods []*Member
		a.items(root, src, "", rustModuleName(path), res, byName, &methods)

		for _, m := range methods {
			if t, ok := byName[m.Owner]; ok {
				t.Members = append(t.Members, m)
				m.Owner = ""
				continue
			}
			res.Detached = append(res.Detached, m)
		}
	})
	return res, err
}

func (a *rustAnalyzer) items(n *tree_sitter.Node, src []byte, ns, module string, res *Result, byName map[string]*Type, methods *[]*Member) {
	for _, c := range children(n) {
		switch c.Kind() {
		case "struct_item", "union_item":
			t := a.structItem(c, src, ns)
			res.Types = append(res.Types, t)
			byName[t.Name] = t
		case "enum_item":
			t := a.enumItem(c, src, ns)
			res.Types = append(res.Types, t)
			byName[t.Name] = t
		case "trait_item":
			t := a.traitItem(c, src, ns)
			res.Types = append(res.Types, t)
			byName[t.Name] = t
		case "impl_item":
			a.implItem(c, src, res, methods)
		case "function_item":
			addFreeFunction(res, module, a.function(c, src))
		case "mod_item":
			if body := c.ChildByFieldName("body"); body != nil {
				a.items(body, src, joinName(ns, field(c, "name", src)), module, res, byName, methods)
			}
		}
	}
}

func (a *rustAnalyzer) structItem(n *tree_sitter.Node, src []byte, ns string) *Type {
	t := a.typeHeader(n, src, ns, types.KindStruct)
	body := n.ChildByFieldName("body")
	if body == nil {
		return t
	}
	switch body.Kind() {
	case "field_declaration_list":
		for _, fd := range children(body) {
			if fd.Kind() != "field_declaration" {
				continue
			}
			name := field(fd, "name", src)
			t.Members = append(t.Members, &Member{
				Name:       name,
				Kind:       types.KindField,
				Signature:  types.Signature{ReturnType: squash(field(fd, "type", src))},
				StartLine:  startLine(fd),
				EndLine:    endLine(fd),
				Visibility: rustVisibility(fd, src),
				Doc:        rustDoc(fd, src),
			})
		}
	case "ordered_field_declaration_list":
		// tuple struct: fields are addressed by position
		i := 0
		for _, fd := range children(body) {
			if !fd.IsNamed() || fd.Kind() == "visibility_modifier" || fd.Kind() == "attribute_item" {
				continue
			}
			t.Members = append(t.Members, &Member{
				Name:       strconv.Itoa(i),
				Kind:       types.KindField,
				Signature:  types.Signature{ReturnType: squash(text(fd, src))},
				StartLine:  startLine(fd),
				EndLine:    endLine(fd),
				Visibility: types.VisibilityPrivate,
			})
			i++
		}
	}
	return t
}

func (a *rustAnalyzer) enumItem(n *tree_sitter.Node, src []byte, ns string) *Type {
	t := a.typeHeader(n, src, ns, types.KindEnum)
	for _, v := range children(n.ChildByFieldName("body")) {
		if v.Kind() != "enum_variant" {
			continue
		}
		t.Members = append(t.Members, &Member{
			Name:       field(v, "name", src),
			Kind:       types.KindField,
			Signature:  types.Signature{ReturnType: t.Name},
			StartLine:  startLine(v),
			EndLine:    endLine(v),
			Modifiers:  types.ModStatic | types.ModConst,
			Visibility: types.VisibilityPublic,
			Doc:        rustDoc(v, src),
		})
	}
	return t
}

func (a *rustAnalyzer) traitItem(n *tree_sitter.Node, src []byte, ns string) *Type {
	t := a.typeHeader(n, src, ns, types.KindInterface)
	if bounds := n.ChildByFieldName("bounds"); bounds != nil {
		for _, b := range children(bounds) {
			if b.IsNamed() && b.Kind() != "lifetime" {
				t.Bases = append(t.Bases, rustTypeName(b, src))
			}
		}
	}
	for _, c := range children(n.ChildByFieldName("body")) {
		switch c.Kind() {
		case "function_signature_item":
			m := a.function(c, src)
			m.Modifiers |= types.ModAbstract
			m.Visibility = types.VisibilityPublic
			t.Members = append(t.Members, m)
		case "function_item":
			m := a.function(c, src)
			m.Modifiers |= types.ModVirtual
			m.Visibility = types.VisibilityPublic
			t.Members = append(t.Members, m)
		}
	}
	return t
}

func (a *rustAnalyzer) implItem(n *tree_sitter.Node, src []byte, res *Result, methods *[]*Member) {
	owner := rustTypeName(n.ChildByFieldName("type"), src)
	if owner == "" {
		return
	}
	trait := n.ChildByFieldName("trait")
	if trait != nil {
		res.Impls = append(res.Impls, Impl{Owner: owner, Base: rustTypeName(trait, src)})
	}
	for _, c := range children(n.ChildByFieldName("body")) {
		if c.Kind() != "function_item" {
			continue
		}
		m := a.function(c, src)
		m.Owner = owner
		if trait != nil {
			// trait methods are as visible as the trait itself
			m.Modifiers |= types.ModOverride
			m.Visibility = types.VisibilityPublic
		}
		*methods = append(*methods, m)
	}
}

func (a *rustAnalyzer) typeHeader(n *tree_sitter.Node, src []byte, ns string, kind types.TypeKind) *Type {
	return &Type{
		Name:       field(n, "name", src),
		Namespace:  ns,
		Kind:       kind,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Visibility: rustVisibility(n, src),
		Doc:        rustDoc(n, src),
	}
}

func (a *rustAnalyzer) function(n *tree_sitter.Node, src []byte) *Member {
	params := n.ChildByFieldName("parameters")
	m := &Member{
		Name: field(n, "name", src),
		Kind: types.KindMethod,
		Signature: types.Signature{
			ParameterList: squash(text(params, src)),
			Parameters:    rustParameters(params, src),
			ReturnType:    squash(field(n, "return_type", src)),
			TypeParams:    text(n.ChildByFieldName("type_parameters"), src),
		},
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Visibility: rustVisibility(n, src),
		Doc:        rustDoc(n, src),
		Body:       text(n, src),
	}
	if childOfKind(params, "self_parameter") == nil {
		m.Modifiers |= types.ModStatic
	}
	if fm := childOfKind(n, "function_modifiers"); fm != nil {
		for _, c := range children(fm) {
			switch text(c, src) {
			case "async":
				m.Modifiers |= types.ModAsync
			case "const":
				m.Modifiers |= types.ModConst
			case "default":
				m.Modifiers |= types.ModVirtual
			}
			if c.Kind() == "extern_modifier" {
				m.Modifiers |= types.ModExtern
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.BodyStart = startLine(body)
		m.BodyStyle = types.BodyBraced
		m.Calls = walkCalls(body, src, rustCallee)
	}
	return m
}

func rustParameters(params *tree_sitter.Node, src []byte) []types.Parameter {
	var out []types.Parameter
	for _, p := range children(params) {
		switch p.Kind() {
		case "parameter":
			out = append(out, types.Parameter{
				Name: squash(field(p, "pattern", src)),
				Type: squash(field(p, "type", src)),
			})
		case "variadic_parameter":
			out = append(out, types.Parameter{Name: "...", Type: squash(field(p, "type", src))})
		}
	}
	return out
}

// rustTypeName reduces a type expression to the simple name members attach
// to: Foo from Foo<T>, crate::a::Foo or &Foo.
func rustTypeName(n *tree_sitter.Node, src []byte) string {
	for n != nil {
		switch n.Kind() {
		case "type_identifier", "identifier":
			return text(n, src)
		case "generic_type":
			n = n.ChildByFieldName("type")
		case "scoped_type_identifier", "scoped_identifier":
			n = n.ChildByFieldName("name")
		case "reference_type", "pointer_type":
			n = n.ChildByFieldName("type")
		default:
			return squash(text(n, src))
		}
	}
	return ""
}

func rustCallee(n *tree_sitter.Node, src []byte) (string, *tree_sitter.Node) {
	if n.Kind() != "call_expression" {
		return "", nil
	}
	fn := n.ChildByFieldName("function")
	for fn != nil {
		switch fn.Kind() {
		case "identifier", "field_identifier":
			return text(fn, src), fn
		case "field_expression":
			fn = fn.ChildByFieldName("field")
		case "scoped_identifier":
			fn = fn.ChildByFieldName("name")
		case "generic_function":
			fn = fn.ChildByFieldName("function")
		case "parenthesized_expression":
			fn = fn.NamedChild(0)
		default:
			return "", nil
		}
	}
	return "", nil
}

func rustVisibility(n *tree_sitter.Node, src []byte) types.Visibility {
	vm := childOfKind(n, "visibility_modifier")
	if vm == nil {
		return types.VisibilityPrivate
	}
	if squash(text(vm, src)) == "pub" {
		return types.VisibilityPublic
	}
	// pub(crate), pub(super), pub(in path)
	return types.VisibilityInternal
}

// rustDoc collects /// and /** */ comments above n, skipping attributes
// such as #[derive(...)] in between.
func rustDoc(n *tree_sitter.Node, src []byte) string {
	var lines []string
	expect := startLine(n)
walk:
	for prev := n.PrevSibling(); prev != nil && endLine(prev) >= expect-1; prev = prev.PrevSibling() {
		switch prev.Kind() {
		case "attribute_item":
		case "line_comment", "block_comment":
			raw := strings.TrimSpace(text(prev, src))
			if !strings.HasPrefix(raw, "///") && !strings.HasPrefix(raw, "/**") {
				break walk
			}
			lines = append([]string{cleanComment(raw)}, lines...)
		default:
			break walk
		}
		expect = startLine(prev)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// rustModuleName names the module type holding a file's free functions;
// mod.rs, lib.rs and main.rs take their directory's name.
func rustModuleName(path string) string {
	stem := fileStem(path)
	switch stem {
	case "mod", "lib", "main":
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return stem
}
