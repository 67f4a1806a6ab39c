package mcp

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/wsmcp/internal/analysis"
	"github.com/standardbeagle/wsmcp/internal/core"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// analyzer binds a query to the snapshot published at call time. The whole
// call sees that one generation even if a reindex lands meanwhile.
func (s *Server) analyzer() (*analysis.Analyzer, error) {
	ix := s.holder.Current()
	if ix == nil {
		return nil, wserrors.NewToolError(wserrors.CodeIndex, "workspace index is not available")
	}
	return analysis.New(ix, s.regex), nil
}

func (s *Server) searchContent(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p analysis.SearchOptions
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("pattern", p.Pattern); err != nil {
		return nil, err
	}
	if p.ContextLines == nil {
		lines := s.cfg.Search.ContextLines
		p.ContextLines = &lines
	}
	if p.MaxResults <= 0 {
		p.MaxResults = s.cfg.Search.MaxResults
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	return a.SearchContent(p)
}

type taskContextParams struct {
	Task      string `json:"task"`
	MaxFiles  int    `json:"maxFiles"`
	MaxTokens int    `json:"maxTokens"`
}

func (s *Server) getContextForTask(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p taskContextParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("task", p.Task); err != nil {
		return nil, err
	}
	if p.MaxFiles <= 0 {
		p.MaxFiles = s.cfg.Context.MaxFiles
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = s.cfg.Context.MaxTokens
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	return a.GetContextForTask(p.Task, p.MaxFiles, p.MaxTokens)
}

type memberParams struct {
	TypeName   string `json:"typeName"`
	MethodName string `json:"methodName"`
}

func (p memberParams) validate() error {
	if err := requireString("typeName", p.TypeName); err != nil {
		return err
	}
	return requireString("methodName", p.MethodName)
}

type methodBodyResponse struct {
	TypeName   string                `json:"typeName"`
	MethodName string                `json:"methodName"`
	Bodies     []analysis.MethodBody `json:"bodies"`
}

func (s *Server) getMethodBody(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p memberParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	bodies, err := a.GetMethodBody(p.TypeName, p.MethodName)
	if err != nil {
		return nil, err
	}
	return methodBodyResponse{TypeName: p.TypeName, MethodName: p.MethodName, Bodies: bodies}, nil
}

type usagesResponse struct {
	SymbolName string           `json:"symbolName"`
	Count      int              `json:"count"`
	Usages     []analysis.Usage `json:"usages"`
}

func (s *Server) findUsages(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		SymbolName string `json:"symbolName"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("symbolName", p.SymbolName); err != nil {
		return nil, err
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	usages, err := a.FindUsages(p.SymbolName)
	if err != nil {
		return nil, err
	}
	return usagesResponse{SymbolName: p.SymbolName, Count: len(usages), Usages: usages}, nil
}

func (s *Server) getCallGraph(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p memberParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	return a.GetCallGraph(p.TypeName, p.MethodName)
}

type implementationsResponse struct {
	InterfaceName   string              `json:"interfaceName"`
	Count           int                 `json:"count"`
	Implementations []analysis.TypeView `json:"implementations"`
}

func (s *Server) findImplementations(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		InterfaceName string `json:"interfaceName"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("interfaceName", p.InterfaceName); err != nil {
		return nil, err
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	impls, err := a.FindImplementations(p.InterfaceName)
	if err != nil {
		return nil, err
	}
	return implementationsResponse{InterfaceName: p.InterfaceName, Count: len(impls), Implementations: impls}, nil
}

type semanticQueryParams struct {
	Criteria *analysis.Criteria `json:"criteria"`
	Limit    int                `json:"limit"`
}

func (s *Server) semanticQuery(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p semanticQueryParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if p.Criteria == nil {
		return nil, wserrors.InvalidArguments("criteria is required")
	}
	c := *p.Criteria
	if p.Limit > 0 {
		c.Limit = p.Limit
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	return a.SemanticQuery(c)
}

type writeParams struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

func (p writeParams) validate() error {
	if err := requireString("path", p.Path); err != nil {
		return err
	}
	if p.Content == nil {
		return wserrors.InvalidArguments("content is required")
	}
	return nil
}

func (s *Server) writeFile(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p writeParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.refactor.WriteFile(p.Path, *p.Content)
}

func (s *Server) previewWrite(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p writeParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.refactor.PreviewWrite(p.Path, *p.Content)
}

func (s *Server) renameSymbol(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		OldName string `json:"oldName"`
		NewName string `json:"newName"`
		Preview bool   `json:"preview"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("oldName", p.OldName); err != nil {
		return nil, err
	}
	if err := requireString("newName", p.NewName); err != nil {
		return nil, err
	}
	return s.refactor.RenameSymbol(p.OldName, p.NewName, p.Preview)
}

func (s *Server) generateInterface(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ClassName string `json:"className"`
		TypeName  string `json:"typeName"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if p.ClassName == "" {
		p.ClassName = p.TypeName
	}
	if err := requireString("className", p.ClassName); err != nil {
		return nil, err
	}
	return s.refactor.GenerateInterface(p.ClassName)
}

func (s *Server) extractMethod(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Path          string `json:"path"`
		StartLine     *int   `json:"startLine"`
		EndLine       *int   `json:"endLine"`
		NewMethodName string `json:"newMethodName"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	if err := requireString("path", p.Path); err != nil {
		return nil, err
	}
	if err := requireInt("startLine", p.StartLine); err != nil {
		return nil, err
	}
	if err := requireInt("endLine", p.EndLine); err != nil {
		return nil, err
	}
	if err := requireString("newMethodName", p.NewMethodName); err != nil {
		return nil, err
	}
	return s.refactor.ExtractMethod(p.Path, *p.StartLine, *p.EndLine, p.NewMethodName)
}

type listFilesResponse struct {
	Pattern string               `json:"pattern,omitempty"`
	Count   int                  `json:"count"`
	Files   []analysis.FileEntry `json:"files"`
}

func (s *Server) listFiles(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Pattern string `json:"pattern"`
	}
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	a, err := s.analyzer()
	if err != nil {
		return nil, err
	}
	files, err := a.ListFiles(p.Pattern)
	if err != nil {
		return nil, err
	}
	return listFilesResponse{Pattern: p.Pattern, Count: len(files), Files: files}, nil
}

type reindexResponse struct {
	PreviousGeneration uint64 `json:"previousGeneration"`
	core.Stats
}

func (s *Server) reindex(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	var prev uint64
	if ix := s.holder.Current(); ix != nil {
		prev = ix.Generation
	}
	ix, err := s.holder.Reindex(ctx)
	if err != nil {
		return nil, err
	}
	return reindexResponse{PreviousGeneration: prev, Stats: ix.Stats()}, nil
}

type statsResponse struct {
	core.Stats
	Sessions int `json:"sessions"`
}

func (s *Server) indexStats(_ context.Context, _ json.RawMessage) (interface{}, error) {
	ix := s.holder.Current()
	if ix == nil {
		return nil, wserrors.NewToolError(wserrors.CodeIndex, "workspace index is not available")
	}
	return statsResponse{Stats: ix.Stats(), Sessions: len(s.Sessions())}, nil
}
