package analysis

import (
	"strings"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// MethodBody is the source of one member.
type MethodBody struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Signature string `json:"signature"`
	Doc       string `json:"doc,omitempty"`
	Body      string `json:"body"`
}

// GetMethodBody returns every member named methodName inside the types named
// typeName. Overloads and partial declarations all appear.
func (a *Analyzer) GetMethodBody(typeName, methodName string) ([]MethodBody, error) {
	if strings.TrimSpace(typeName) == "" || strings.TrimSpace(methodName) == "" {
		return nil, wserrors.InvalidArguments("typeName and methodName are required")
	}
	owners, err := a.ResolveTypes(typeName)
	if err != nil {
		return nil, err
	}
	members := a.membersNamed(owners, methodName)
	if len(members) == 0 {
		return nil, a.memberNotFound(owners, typeName, methodName)
	}

	out := make([]MethodBody, 0, len(members))
	for _, m := range members {
		body := MethodBody{
			Type:      a.ix.Owner(m).QualifiedName,
			Name:      m.Name,
			Kind:      string(m.Kind),
			StartLine: m.StartLine,
			EndLine:   m.EndLine,
			Signature: DisplaySignature(m),
			Doc:       m.Doc,
			Body:      m.Body,
		}
		if f := a.ix.File(m.FileID); f != nil {
			body.File, body.Path = f.RelPath, f.Path
			if body.Body == "" {
				body.Body = sliceLines(f.Text, m.StartLine, m.EndLine)
			}
		}
		out = append(out, body)
	}
	return out, nil
}

// sliceLines returns lines start..end (1-based, inclusive) of text.
func sliceLines(text string, start, end int) string {
	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
