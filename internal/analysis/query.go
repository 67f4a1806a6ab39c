package analysis

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// DefaultQueryLimit caps SemanticQuery results when no limit is given.
const DefaultQueryLimit = 200

// Criteria is a sparse predicate set. A nil or empty field does not
// constrain; a member matches when every set field holds.
type Criteria struct {
	IsAsync          *bool  `json:"isAsync,omitempty"`
	IsStatic         *bool  `json:"isStatic,omitempty"`
	IsAbstract       *bool  `json:"isAbstract,omitempty"`
	IsVirtual        *bool  `json:"isVirtual,omitempty"`
	IsOverride       *bool  `json:"isOverride,omitempty"`
	ReturnTypeEquals string `json:"returnTypeEquals,omitempty"`
	NamePattern      string `json:"namePattern,omitempty"`
	Kind             string `json:"kind,omitempty"`
	TypeName         string `json:"typeName,omitempty"`
	Visibility       string `json:"visibility,omitempty"`
	Language         string `json:"language,omitempty"`
	MinParameters    *int   `json:"minParameters,omitempty"`
	MaxParameters    *int   `json:"maxParameters,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

// QueryResult holds the matches of a SemanticQuery.
type QueryResult struct {
	Matches   []MemberView `json:"matches"`
	Total     int          `json:"total"`
	Truncated bool         `json:"truncated,omitempty"`
}

func normalizeType(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type predicate func(m *types.MemberDeclaration, owner *types.TypeDeclaration) bool

func flag(want *bool, mod types.Modifiers) predicate {
	return func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
		return m.Modifiers.Has(mod) == *want
	}
}

func (c Criteria) predicates() ([]predicate, error) {
	var ps []predicate
	if c.IsAsync != nil {
		ps = append(ps, flag(c.IsAsync, types.ModAsync))
	}
	if c.IsStatic != nil {
		ps = append(ps, flag(c.IsStatic, types.ModStatic))
	}
	if c.IsAbstract != nil {
		ps = append(ps, flag(c.IsAbstract, types.ModAbstract))
	}
	if c.IsVirtual != nil {
		ps = append(ps, flag(c.IsVirtual, types.ModVirtual))
	}
	if c.IsOverride != nil {
		ps = append(ps, flag(c.IsOverride, types.ModOverride))
	}
	if c.ReturnTypeEquals != "" {
		want := normalizeType(c.ReturnTypeEquals)
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			return normalizeType(m.Signature.ReturnType) == want
		})
	}
	if c.NamePattern != "" {
		if !doublestar.ValidatePattern(c.NamePattern) {
			return nil, wserrors.InvalidArguments("invalid namePattern %q", c.NamePattern)
		}
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			ok, _ := doublestar.Match(c.NamePattern, m.Name)
			return ok
		})
	}
	if c.Kind != "" {
		kind := types.MemberKind(strings.ToLower(c.Kind))
		switch kind {
		case types.KindMethod, types.KindProperty, types.KindField, types.KindConstructor:
		default:
			return nil, wserrors.InvalidArguments("unknown member kind %q", c.Kind)
		}
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			return m.Kind == kind
		})
	}
	if c.TypeName != "" {
		ps = append(ps, func(_ *types.MemberDeclaration, owner *types.TypeDeclaration) bool {
			return owner != nil && (owner.Name == c.TypeName || owner.QualifiedName == c.TypeName)
		})
	}
	if c.Visibility != "" {
		vis := types.Visibility(strings.ToLower(c.Visibility))
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			return m.Visibility == vis
		})
	}
	if c.Language != "" {
		lang := types.Language(strings.ToLower(c.Language))
		ps = append(ps, func(_ *types.MemberDeclaration, owner *types.TypeDeclaration) bool {
			return owner != nil && owner.Language == lang
		})
	}
	if c.MinParameters != nil {
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			return len(m.Signature.Parameters) >= *c.MinParameters
		})
	}
	if c.MaxParameters != nil {
		ps = append(ps, func(m *types.MemberDeclaration, _ *types.TypeDeclaration) bool {
			return len(m.Signature.Parameters) <= *c.MaxParameters
		})
	}
	return ps, nil
}

// SemanticQuery returns the members satisfying every supplied criterion, in
// index order, up to the limit. Total counts all matches.
func (a *Analyzer) SemanticQuery(c Criteria) (*QueryResult, error) {
	ps, err := c.predicates()
	if err != nil {
		return nil, err
	}
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	res := &QueryResult{Matches: []MemberView{}}
	for _, m := range a.ix.Members {
		owner := a.ix.Owner(m)
		matched := true
		for _, p := range ps {
			if !p(m, owner) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		res.Total++
		if len(res.Matches) < limit {
			res.Matches = append(res.Matches, a.memberView(m))
		}
	}
	res.Truncated = res.Total > len(res.Matches)
	return res, nil
}
