package analysis

import (
	"fmt"
	"sort"
	"strings"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/semantic"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// Task context limits.
const (
	DefaultContextFiles  = 10
	DefaultContextTokens = 8000
	charsPerToken        = 4
	bodiesPerFile        = 3
)

// FileContext is one relevant file: an outline of its declarations plus the
// bodies of its best matching members.
type FileContext struct {
	File    string       `json:"file"`
	Path    string       `json:"path"`
	Score   float64      `json:"score"`
	Outline []string     `json:"outline"`
	Members []MethodBody `json:"members,omitempty"`
	Tokens  int          `json:"tokens"`
}

// TaskContext is the answer to get_context_for_task.
type TaskContext struct {
	Task      string        `json:"task"`
	Keywords  []string      `json:"keywords"`
	Files     []FileContext `json:"files"`
	Tokens    int           `json:"estimatedTokens"`
	Truncated bool          `json:"truncated,omitempty"`
}

type scoredMember struct {
	m     *types.MemberDeclaration
	score float64
}

type scoredFile struct {
	f       *types.SourceFile
	score   float64
	members []scoredMember
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return tokensFor(len(text))
}

func tokensFor(chars int) int {
	return (chars + charsPerToken - 1) / charsPerToken
}

// GetContextForTask ranks files by how well their paths, declarations and
// docs match the task keywords and returns as many as fit the budgets.
func (a *Analyzer) GetContextForTask(task string, maxFiles, maxTokens int) (*TaskContext, error) {
	if strings.TrimSpace(task) == "" {
		return nil, wserrors.InvalidArguments("task is required")
	}
	if maxFiles <= 0 {
		maxFiles = DefaultContextFiles
	}
	if maxTokens <= 0 {
		maxTokens = DefaultContextTokens
	}

	scorer := semantic.NewScorer(task)
	out := &TaskContext{Task: task, Keywords: []string{}, Files: []FileContext{}}
	for _, t := range scorer.Terms() {
		out.Keywords = append(out.Keywords, t.Word)
	}

	ranked := a.rankFiles(scorer)
	for _, sf := range ranked {
		if len(out.Files) == maxFiles {
			out.Truncated = true
			break
		}
		fc := a.fileContext(sf, true)
		if out.Tokens+fc.Tokens > maxTokens {
			fc = a.fileContext(sf, false)
			if out.Tokens+fc.Tokens > maxTokens {
				// a smaller, lower ranked file may still fit
				out.Truncated = true
				continue
			}
		}
		out.Tokens += fc.Tokens
		out.Files = append(out.Files, fc)
	}
	return out, nil
}

func (a *Analyzer) rankFiles(scorer *semantic.Scorer) []scoredFile {
	var ranked []scoredFile
	for _, f := range a.ix.Files {
		sf := scoredFile{f: f, score: scorer.Score(f.RelPath)}
		for _, tid := range f.Types {
			t := a.ix.Type(tid)
			sf.score += 2*scorer.Score(t.Name) + 0.5*scorer.Score(t.Doc)
			for _, mid := range t.Members {
				m := a.ix.Member(mid)
				if m.FileID != f.ID {
					continue
				}
				s := scorer.Score(m.Name) + 0.5*scorer.Score(m.Doc)
				if s > 0 {
					sf.score += s
					sf.members = append(sf.members, scoredMember{m: m, score: s})
				}
			}
		}
		if sf.score > 0 {
			sort.SliceStable(sf.members, func(i, j int) bool { return sf.members[i].score > sf.members[j].score })
			ranked = append(ranked, sf)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].f.RelPath < ranked[j].f.RelPath
	})
	return ranked
}

func (a *Analyzer) fileContext(sf scoredFile, withBodies bool) FileContext {
	fc := FileContext{File: sf.f.RelPath, Path: sf.f.Path, Score: sf.score, Outline: a.outline(sf.f)}
	size := len(fc.File) + len(strings.Join(fc.Outline, "\n"))
	if withBodies {
		for i, sm := range sf.members {
			if i == bodiesPerFile {
				break
			}
			body := MethodBody{
				Type:      a.ix.Owner(sm.m).QualifiedName,
				Name:      sm.m.Name,
				Kind:      string(sm.m.Kind),
				File:      sf.f.RelPath,
				Path:      sf.f.Path,
				StartLine: sm.m.StartLine,
				EndLine:   sm.m.EndLine,
				Signature: DisplaySignature(sm.m),
				Body:      sm.m.Body,
			}
			if body.Body == "" {
				body.Body = sliceLines(sf.f.Text, sm.m.StartLine, sm.m.EndLine)
			}
			size += len(body.Body) + len(body.Signature)
			fc.Members = append(fc.Members, body)
		}
	}
	fc.Tokens = tokensFor(size)
	return fc
}

// outline lists a file's declarations, members indented under their type.
func (a *Analyzer) outline(f *types.SourceFile) []string {
	lines := []string{}
	for _, tid := range f.Types {
		t := a.ix.Type(tid)
		lines = append(lines, fmt.Sprintf("%s %s (L%d-%d)", t.Kind, t.QualifiedName, t.StartLine, t.EndLine))
		for _, mid := range t.Members {
			m := a.ix.Member(mid)
			if m.FileID != f.ID {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s %s (L%d-%d)", m.Kind, DisplaySignature(m), m.StartLine, m.EndLine))
		}
	}
	return lines
}
