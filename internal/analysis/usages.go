package analysis

import (
	"strings"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// lastSegment reduces "Orders.Service.Place" to "Place". Call sites record
// only the simple callee name.
func lastSegment(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// FindUsages returns every call site whose written callee equals the simple
// name, across all files. Overloads and shadowing are not resolved.
func (a *Analyzer) FindUsages(symbolName string) ([]Usage, error) {
	name := lastSegment(symbolName)
	if name == "" {
		return nil, wserrors.InvalidArguments("symbolName is required")
	}
	sites := a.ix.Symbols.CallsTo(name)
	out := make([]Usage, 0, len(sites))
	for _, cs := range sites {
		out = append(out, a.usage(cs))
	}
	return out, nil
}

// CallGraph is the neighbourhood of one method.
type CallGraph struct {
	Type    string   `json:"type"`
	Method  string   `json:"method"`
	Targets []string `json:"targets"`
	Callers []Usage  `json:"callers"`
	Callees []string `json:"callees"`
}

// GetCallGraph reports who calls typeName.methodName and what it calls.
// Every member with that name in every matching type contributes; callers
// exclude calls written inside those members themselves.
func (a *Analyzer) GetCallGraph(typeName, methodName string) (*CallGraph, error) {
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

	self := make(map[types.MemberID]bool, len(members))
	g := &CallGraph{Type: typeName, Method: methodName, Callers: []Usage{}, Callees: []string{}}
	for _, m := range members {
		self[m.ID] = true
		g.Targets = append(g.Targets, a.ix.QualifiedMemberName(m))
	}
	for _, cs := range a.ix.Symbols.CallsTo(methodName) {
		if !self[cs.CallerID] {
			g.Callers = append(g.Callers, a.usage(cs))
		}
	}
	seen := make(map[string]bool)
	for _, m := range members {
		for _, cs := range a.ix.Symbols.CallsFrom(m.ID) {
			if !seen[cs.Callee] {
				seen[cs.Callee] = true
				g.Callees = append(g.Callees, cs.Callee)
			}
		}
	}
	return g, nil
}

// FindImplementations returns the types whose declared bases include name,
// compared by simple name.
func (a *Analyzer) FindImplementations(name string) ([]TypeView, error) {
	simple := types.SimpleName(name)
	if simple == "" {
		return nil, wserrors.InvalidArguments("interfaceName is required")
	}
	ids := a.ix.Symbols.ImplementorsOf(simple)
	out := make([]TypeView, 0, len(ids))
	seen := make(map[types.TypeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, a.typeView(a.ix.Type(id)))
	}
	return out, nil
}
