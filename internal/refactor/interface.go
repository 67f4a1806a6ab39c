package refactor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/standardbeagle/wsmcp/internal/analysis"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// InterfaceSource is the generated interface for one type.
type InterfaceSource struct {
	Name     string `json:"name"`
	From     string `json:"from"`
	Language string `json:"language"`
	File     string `json:"file"`
	Members  int    `json:"members"`
	Source   string `json:"source"`
}

// GeneratedInterface holds one interface per matching type, in index order.
type GeneratedInterface struct {
	TypeName   string            `json:"typeName"`
	Interfaces []InterfaceSource `json:"interfaces"`
	Source     string            `json:"source"`
}

// GenerateInterface emits an interface declaration covering the public,
// non-static methods and properties of every type named typeName.
func (s *Service) GenerateInterface(typeName string) (*GeneratedInterface, error) {
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	owners, err := analysis.New(ix, nil).ResolveTypes(typeName)
	if err != nil {
		return nil, err
	}

	out := &GeneratedInterface{TypeName: typeName}
	var sources []string
	for _, t := range owners {
		var members []*types.MemberDeclaration
		seen := make(map[string]bool)
		for _, id := range t.Members {
			m := ix.Member(id)
			if !exposed(t, m) {
				continue
			}
			key := string(m.Kind) + m.Name + m.Signature.ParameterList
			if seen[key] {
				continue
			}
			seen[key] = true
			members = append(members, m)
		}

		name, src := renderInterface(t, members)
		is := InterfaceSource{Name: name, From: t.QualifiedName, Language: string(t.Language), Members: len(members), Source: src}
		if f := ix.File(t.FileID); f != nil {
			is.File = f.RelPath
		}
		out.Interfaces = append(out.Interfaces, is)
		sources = append(sources, src)
	}
	out.Source = strings.Join(sources, "\n")
	return out, nil
}

// exposed reports whether m belongs on the generated interface.
func exposed(t *types.TypeDeclaration, m *types.MemberDeclaration) bool {
	if t.Module || m.Modifiers.Has(types.ModStatic) {
		return false
	}
	if m.Kind != types.KindMethod && m.Kind != types.KindProperty {
		return false
	}
	switch m.Visibility {
	case types.VisibilityPublic:
		return true
	case "":
		switch t.Language {
		case types.LangGo:
			return startsUpper(m.Name)
		case types.LangTypeScript, types.LangJavaScript:
			return !strings.HasPrefix(m.Name, "#")
		case types.LangPython:
			return !strings.HasPrefix(m.Name, "_")
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func params(m *types.MemberDeclaration) string {
	if m.Signature.ParameterList == "" {
		return "()"
	}
	return m.Signature.ParameterList
}

func renderInterface(t *types.TypeDeclaration, members []*types.MemberDeclaration) (string, string) {
	var b strings.Builder
	switch t.Language {
	case types.LangGo:
		name := t.Name + "Interface"
		fmt.Fprintf(&b, "type %s interface {\n", name)
		for _, m := range members {
			line := m.Name + m.Signature.TypeParams + params(m)
			if m.Signature.ReturnType != "" {
				line += " " + m.Signature.ReturnType
			}
			fmt.Fprintf(&b, "\t%s\n", line)
		}
		b.WriteString("}\n")
		return name, b.String()

	case types.LangTypeScript, types.LangJavaScript:
		name := "I" + t.Name
		fmt.Fprintf(&b, "export interface %s {\n", name)
		for _, m := range members {
			ret := ""
			if m.Signature.ReturnType != "" {
				ret = ": " + m.Signature.ReturnType
			}
			if m.Kind == types.KindProperty {
				if ret == "" {
					ret = ": unknown"
				}
				fmt.Fprintf(&b, "  %s%s;\n", m.Name, ret)
				continue
			}
			fmt.Fprintf(&b, "  %s%s%s%s;\n", m.Name, m.Signature.TypeParams, params(m), ret)
		}
		b.WriteString("}\n")
		return name, b.String()

	case types.LangPython:
		name := t.Name + "Protocol"
		fmt.Fprintf(&b, "class %s(Protocol):\n", name)
		if len(members) == 0 {
			b.WriteString("    ...\n")
		}
		for _, m := range members {
			ret := ""
			if m.Signature.ReturnType != "" {
				ret = " -> " + m.Signature.ReturnType
			}
			if m.Kind == types.KindProperty {
				b.WriteString("    @property\n")
			}
			pl := m.Signature.ParameterList
			if pl == "" {
				pl = "(self)"
			}
			fmt.Fprintf(&b, "    def %s%s%s: ...\n", m.Name, pl, ret)
		}
		return name, b.String()

	case types.LangRust:
		name := t.Name + "Trait"
		fmt.Fprintf(&b, "pub trait %s {\n", name)
		for _, m := range members {
			ret := ""
			if m.Signature.ReturnType != "" {
				ret = " -> " + m.Signature.ReturnType
			}
			pl := m.Signature.ParameterList
			if pl == "" {
				pl = "(&self)"
			}
			fmt.Fprintf(&b, "    fn %s%s%s%s;\n", m.Name, m.Signature.TypeParams, pl, ret)
		}
		b.WriteString("}\n")
		return name, b.String()

	case types.LangPHP:
		name := t.Name + "Interface"
		fmt.Fprintf(&b, "interface %s\n{\n", name)
		for _, m := range members {
			ret := ""
			if m.Signature.ReturnType != "" {
				ret = ": " + m.Signature.ReturnType
			}
			fmt.Fprintf(&b, "    public function %s%s%s;\n", m.Name, params(m), ret)
		}
		b.WriteString("}\n")
		return name, b.String()

	case types.LangJava:
		name := "I" + t.Name
		fmt.Fprintf(&b, "public interface %s {\n", name)
		for _, m := range members {
			ret := m.Signature.ReturnType
			if ret == "" {
				ret = "void"
			}
			if m.Signature.TypeParams != "" {
				ret = m.Signature.TypeParams + " " + ret
			}
			fmt.Fprintf(&b, "    %s %s%s;\n", ret, m.Name, params(m))
		}
		b.WriteString("}\n")
		return name, b.String()

	default:
		name := "I" + t.Name
		fmt.Fprintf(&b, "public interface %s\n{\n", name)
		for _, m := range members {
			ret := m.Signature.ReturnType
			if ret == "" {
				ret = "void"
			}
			if m.Kind == types.KindProperty {
				accessors := m.Signature.Accessors
				if len(accessors) == 0 {
					accessors = []string{"get"}
				}
				fmt.Fprintf(&b, "    %s %s { %s; }\n", ret, m.Name, strings.Join(accessors, "; "))
				continue
			}
			fmt.Fprintf(&b, "    %s %s%s%s;\n", ret, m.Name, m.Signature.TypeParams, params(m))
		}
		b.WriteString("}\n")
		return name, b.String()
	}
}
