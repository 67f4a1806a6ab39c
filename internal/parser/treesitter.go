package parser

import (
	"fmt"
	"strings"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/wsmcp/internal/debug"
)

// tsBase parses with a fresh tree-sitter parser per call; parsers are not
// safe for concurrent use.
type tsBase struct {
	language *tree_sitter.Language
}

func newTSBase(ptr unsafe.Pointer) tsBase {
	return tsBase{language: tree_sitter.NewLanguage(ptr)}
}

// parse runs fn over the syntax tree of src. Panics inside the binding are
// converted to errors so one bad file cannot take down a build.
func (b tsBase) parse(path string, src []byte, fn func(root *tree_sitter.Node, src []byte)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogIndexing("tree-sitter panic in %s: %v", path, r)
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	p := tree_sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(b.language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}

	// the C side may retain the buffer; keep the caller's slice untouched
	buf := make([]byte, len(src))
	copy(buf, src)

	tree := p.Parse(buf, nil)
	if tree == nil {
		return fmt.Errorf("parse returned no tree")
	}
	defer tree.Close()

	fn(tree.RootNode(), buf)
	return nil
}

func children(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func childOfKind(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	for _, c := range children(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

func hasChildToken(n *tree_sitter.Node, token string) bool {
	for _, c := range children(n) {
		if c.Kind() == token {
			return true
		}
	}
	return false
}

func text(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

func field(n *tree_sitter.Node, name string, src []byte) string {
	if n == nil {
		return ""
	}
	return text(n.ChildByFieldName(name), src)
}

func startLine(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func endLine(n *tree_sitter.Node) int {
	return int(n.EndPosition().Row) + 1
}

// squash collapses runs of whitespace so multi-line signatures compare equal.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// leadingComments gathers the comment block directly above n, stripped of
// comment markers. isComment decides which sibling kinds count.
func leadingComments(n *tree_sitter.Node, src []byte, isComment func(kind string) bool) string {
	var lines []string
	expect := startLine(n)
	for prev := n.PrevSibling(); prev != nil && isComment(prev.Kind()); prev = prev.PrevSibling() {
		if endLine(prev) < expect-1 {
			break
		}
		lines = append([]string{cleanComment(text(prev, src))}, lines...)
		expect = startLine(prev)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func cleanComment(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"///", "//", "#", "*"} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// walkCalls visits every node under n and records calls reported by callee.
// callee returns the written name and the node to report the position of.
func walkCalls(n *tree_sitter.Node, src []byte, callee func(*tree_sitter.Node, []byte) (string, *tree_sitter.Node)) []Call {
	var calls []Call
	var visit func(*tree_sitter.Node)
	visit = func(node *tree_sitter.Node) {
		if node == nil {
			return
		}
		if name, at := callee(node, src); name != "" {
			if at == nil {
				at = node
			}
			calls = append(calls, Call{
				Name:   name,
				Line:   startLine(at),
				Column: int(at.StartPosition().Column) + 1,
			})
		}
		for _, c := range children(node) {
			visit(c)
		}
	}
	visit(n)
	return calls
}

// lastIdentifier returns the rightmost identifier-like child of a dotted or
// generic name node, used when a grammar lacks a name field.
func lastIdentifier(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	var found *tree_sitter.Node
	for _, c := range children(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				found = c
			}
		}
	}
	return found
}
