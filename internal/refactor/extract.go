package refactor

import (
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// ExtractResult describes an extract-method edit.
type ExtractResult struct {
	WriteResult
	MethodName string `json:"methodName"`
	Call       string `json:"call"`
	From       string `json:"from"`
	InsertedAt int    `json:"insertedAtLine"`
}

// ExtractMethod moves lines startLine..endLine of a method body into a new
// parameterless member declared right after the containing one, and leaves a
// call in their place. The file must be unchanged since it was indexed.
func (s *Service) ExtractMethod(path string, startLine, endLine int, newName string) (*ExtractResult, error) {
	if !validIdentifier(newName) {
		return nil, wserrors.InvalidArguments("newMethodName %q is not an identifier", newName)
	}
	if startLine < 1 || endLine < startLine {
		return nil, &wserrors.RangeError{Path: path, StartLine: startLine, EndLine: endLine, Reason: "start must be >= 1 and <= end"}
	}
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	t, err := resolve(ix.Roots, path)
	if err != nil {
		return nil, err
	}
	f, ok := ix.FileByPath(t.Path)
	if !ok || !f.Analyzed {
		return nil, wserrors.NotFound("%s is not an analyzed file of the index", t.RelPath)
	}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		return nil, wserrors.NotFound("read %s: %v", t.RelPath, err)
	}
	if xxhash.Sum64(data) != f.Hash {
		return nil, wserrors.NewToolError(wserrors.CodeIndexStale, "%s changed since it was indexed; reindex before extracting", t.RelPath)
	}

	rangeErr := func(reason string) error {
		return &wserrors.RangeError{Path: t.RelPath, StartLine: startLine, EndLine: endLine, Reason: reason}
	}
	m := ix.MemberAt(f.ID, startLine)
	if m == nil || ix.MemberAt(f.ID, endLine) != m {
		return nil, rangeErr("range crosses a member boundary")
	}
	if m.Kind != types.KindMethod && m.Kind != types.KindConstructor {
		return nil, rangeErr(fmt.Sprintf("%s is a %s, not a method", m.Name, m.Kind))
	}
	switch m.BodyStyle {
	case types.BodyNone:
		return nil, rangeErr(m.Name + " has no body")
	case types.BodyExpression:
		return nil, rangeErr(m.Name + " has an expression body, not statements")
	case types.BodyIndented:
		// the block holds only statements, so its first and last lines may be taken
		first := max(m.BodyStart, m.StartLine+1)
		if startLine < first || endLine > m.EndLine {
			return nil, rangeErr(fmt.Sprintf("range must lie inside the body of %s (lines %d-%d)", m.Name, first, m.EndLine))
		}
	default:
		first, last := max(m.BodyStart, m.StartLine)+1, m.EndLine-1
		if startLine < first || endLine > last {
			return nil, rangeErr(fmt.Sprintf("range must lie inside the body of %s (lines %d-%d)", m.Name, first, last))
		}
	}
	for _, other := range ix.MembersInFile(f.ID) {
		if other != m && other.StartLine >= startLine && other.StartLine <= endLine {
			return nil, rangeErr("range contains the declaration of " + other.Name)
		}
	}

	owner := ix.Owner(m)
	lines := splitLines(string(data))
	if m.EndLine > len(lines) {
		return nil, rangeErr("member extends past the end of the file")
	}
	newline := "\n"
	if strings.Contains(string(data), "\r\n") {
		newline = "\r\n"
	}

	ex := extraction{
		lang:         f.Language,
		owner:        owner,
		member:       m,
		name:         newName,
		memberIndent: leadingSpace(lines[m.StartLine-1]),
		bodyIndent:   firstIndent(lines[startLine-1 : endLine]),
		newline:      newline,
	}
	call := ex.call()
	method := ex.method(lines[startLine-1 : endLine])

	var out strings.Builder
	for _, l := range lines[:startLine-1] {
		out.WriteString(l)
	}
	out.WriteString(ex.bodyIndent + call + newline)
	for _, l := range lines[endLine:m.EndLine] {
		out.WriteString(l)
	}
	if !strings.HasSuffix(lines[m.EndLine-1], "\n") {
		out.WriteString(newline)
	}
	out.WriteString(newline)
	out.WriteString(method)
	for _, l := range lines[m.EndLine:] {
		out.WriteString(l)
	}

	wr, err := s.write(ix.Workspace, t, []byte(out.String()))
	if err != nil {
		return nil, err
	}
	removed := endLine - startLine + 1
	return &ExtractResult{
		WriteResult: *wr,
		MethodName:  newName,
		Call:        strings.TrimSpace(call),
		From:        ix.QualifiedMemberName(m),
		InsertedAt:  m.EndLine - removed + 1 + 2,
	}, nil
}

type extraction struct {
	lang         types.Language
	owner        *types.TypeDeclaration
	member       *types.MemberDeclaration
	name         string
	memberIndent string
	bodyIndent   string
	newline      string
}

func (e extraction) free() bool {
	return e.owner == nil || e.owner.Module
}

func (e extraction) static() bool {
	return e.member.Modifiers.Has(types.ModStatic)
}

// call is the statement that replaces the extracted lines.
func (e extraction) call() string {
	switch e.lang {
	case types.LangGo:
		if recv := receiverName(e.member.Signature.Receiver); recv != "" {
			return recv + "." + e.name + "()"
		}
		return e.name + "()"
	case types.LangTypeScript, types.LangJavaScript:
		switch {
		case e.free():
			return e.name + "();"
		case e.static():
			return e.owner.Name + "." + e.name + "();"
		}
		return "this." + e.name + "();"
	case types.LangPython:
		switch {
		case e.free():
			return e.name + "()"
		case e.static():
			return e.owner.Name + "." + e.name + "()"
		}
		return "self." + e.name + "()"
	case types.LangRust:
		switch {
		case e.free():
			return e.name + "();"
		case e.static():
			return "Self::" + e.name + "();"
		}
		return "self." + e.name + "();"
	case types.LangPHP:
		switch {
		case e.free():
			return e.name + "();"
		case e.static():
			return "self::" + e.name + "();"
		}
		return "$this->" + e.name + "();"
	default:
		return e.name + "();"
	}
}

// method renders the new member, re-indented one level below the member
// indentation.
func (e extraction) method(body []string) string {
	unit := strings.TrimPrefix(e.bodyIndent, e.memberIndent)
	if unit == "" || unit == e.bodyIndent && e.memberIndent != "" {
		unit = "    "
		if e.lang == types.LangGo {
			unit = "\t"
		}
	}
	inner := e.memberIndent + unit

	var b strings.Builder
	nl := e.newline
	open, closing := " {", e.memberIndent+"}"+nl
	switch e.lang {
	case types.LangGo:
		if e.member.Signature.Receiver != "" {
			fmt.Fprintf(&b, "%sfunc %s %s()", e.memberIndent, e.member.Signature.Receiver, e.name)
		} else {
			fmt.Fprintf(&b, "%sfunc %s()", e.memberIndent, e.name)
		}
	case types.LangTypeScript:
		switch {
		case e.free():
			fmt.Fprintf(&b, "%sfunction %s(): void", e.memberIndent, e.name)
		case e.static():
			fmt.Fprintf(&b, "%sprivate static %s(): void", e.memberIndent, e.name)
		default:
			fmt.Fprintf(&b, "%sprivate %s(): void", e.memberIndent, e.name)
		}
	case types.LangJavaScript:
		switch {
		case e.free():
			fmt.Fprintf(&b, "%sfunction %s()", e.memberIndent, e.name)
		case e.static():
			fmt.Fprintf(&b, "%sstatic %s()", e.memberIndent, e.name)
		default:
			fmt.Fprintf(&b, "%s%s()", e.memberIndent, e.name)
		}
	case types.LangPython:
		open, closing = ":", ""
		switch {
		case e.free():
			fmt.Fprintf(&b, "%sdef %s()", e.memberIndent, e.name)
		case e.static():
			fmt.Fprintf(&b, "%s@staticmethod%s%sdef %s()", e.memberIndent, nl, e.memberIndent, e.name)
		default:
			fmt.Fprintf(&b, "%sdef %s(self)", e.memberIndent, e.name)
		}
	case types.LangRust:
		switch {
		case e.free(), e.static():
			fmt.Fprintf(&b, "%sfn %s()", e.memberIndent, e.name)
		default:
			fmt.Fprintf(&b, "%sfn %s(%s)", e.memberIndent, e.name, rustSelf(e.member.Signature.ParameterList))
		}
	case types.LangPHP:
		open = nl + e.memberIndent + "{"
		switch {
		case e.free():
			fmt.Fprintf(&b, "%sfunction %s(): void", e.memberIndent, e.name)
		case e.static():
			fmt.Fprintf(&b, "%sprivate static function %s(): void", e.memberIndent, e.name)
		default:
			fmt.Fprintf(&b, "%sprivate function %s(): void", e.memberIndent, e.name)
		}
	case types.LangCSharp:
		open = nl + e.memberIndent + "{"
		if e.static() {
			fmt.Fprintf(&b, "%sprivate static void %s()", e.memberIndent, e.name)
		} else {
			fmt.Fprintf(&b, "%sprivate void %s()", e.memberIndent, e.name)
		}
	default:
		if e.static() {
			fmt.Fprintf(&b, "%sprivate static void %s()", e.memberIndent, e.name)
		} else {
			fmt.Fprintf(&b, "%sprivate void %s()", e.memberIndent, e.name)
		}
	}
	b.WriteString(open + nl)
	for _, l := range body {
		content := strings.TrimRight(l, "\r\n")
		if strings.TrimSpace(content) == "" {
			b.WriteString(nl)
			continue
		}
		b.WriteString(inner + strings.TrimPrefix(content, e.bodyIndent) + nl)
	}
	b.WriteString(closing)
	return b.String()
}

// rustSelf returns the self parameter of a Rust parameter list, such as
// "&mut self" from "(&mut self, n: u32)".
func rustSelf(params string) string {
	first, _, _ := strings.Cut(strings.Trim(params, "()"), ",")
	if first = strings.TrimSpace(first); strings.HasSuffix(first, "self") {
		return first
	}
	return "&self"
}

// receiverName extracts r from "(r *T)"; an unnamed receiver yields "".
func receiverName(recv string) string {
	fields := strings.Fields(strings.Trim(recv, "()"))
	if len(fields) < 2 {
		return ""
	}
	return fields[0]
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// firstIndent is the indentation of the first non-blank line.
func firstIndent(lines []string) string {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return leadingSpace(l)
		}
	}
	return ""
}
