package indexing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/wsmcp/internal/core"
	"github.com/standardbeagle/wsmcp/internal/debug"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/parser"
	"github.com/standardbeagle/wsmcp/internal/types"
	"github.com/standardbeagle/wsmcp/internal/workspace"
)

// Options tune a build.
type Options struct {
	MaxFileSize      int64
	RespectGitignore bool
	Workers          int
}

// Indexer builds WorkspaceIndex snapshots. It holds no per-build state and
// may be shared.
type Indexer struct {
	registry *parser.Registry
	provider workspace.RepositoryProvider
	opts     Options
}

func NewIndexer(registry *parser.Registry, provider workspace.RepositoryProvider, opts Options) *Indexer {
	if registry == nil {
		registry = parser.DefaultRegistry()
	}
	if provider == nil {
		provider = workspace.LocalProvider{}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = types.DefaultMaxFileSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Indexer{registry: registry, provider: provider, opts: opts}
}

type analyzed struct {
	file    types.SourceFile
	result  *parser.Result
	warning *wserrors.AnalysisWarning
}

// Build indexes every enabled root and materialized repository of ws. It
// fails with an IndexError only when no root exists; per-file problems are
// recorded as warnings on the result.
func (ix *Indexer) Build(ctx context.Context, ws *types.Workspace, generation uint64) (*core.WorkspaceIndex, error) {
	start := time.Now()
	roots, warnings := ix.resolveRoots(ctx, ws)
	if len(roots) == 0 {
		return nil, wserrors.NewIndexError(ws.Name, "no workspace directory resolves to an existing path", nil)
	}

	scanner := NewFileScanner(NewFilter(ws.Extensions, ws.Ignore), ix.opts.RespectGitignore)
	candidates, err := scanner.Scan(ctx, roots)
	if err != nil {
		return nil, wserrors.NewIndexError(ws.Name, "scan failed", err)
	}

	results := make([]analyzed, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ix.analyzeFile(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wserrors.NewIndexError(ws.Name, "analysis interrupted", err)
	}

	b := core.NewBuilder(ws.Name, generation, roots)
	for _, w := range warnings {
		b.Warn(w)
	}
	for _, r := range results {
		b.AddFile(r.file, r.result)
		if r.warning != nil {
			b.Warn(r.warning)
		}
	}
	snapshot := b.Build()

	debug.LogIndexing("generation %d of %s: %d files, %d types, %d members, %d calls, %d warnings in %v",
		generation, ws.Name, len(snapshot.Files), len(snapshot.Types), len(snapshot.Members),
		len(snapshot.Calls), len(snapshot.Warnings), time.Since(start))
	return snapshot, nil
}

// resolveRoots returns the absolute, symlink-resolved roots that exist.
func (ix *Indexer) resolveRoots(ctx context.Context, ws *types.Workspace) ([]string, []*wserrors.AnalysisWarning) {
	var roots []string
	var warnings []*wserrors.AnalysisWarning
	seen := make(map[string]bool)

	add := func(p string) {
		resolved, err := resolveDir(p)
		if err != nil {
			warnings = append(warnings, wserrors.NewAnalysisWarning(p, "root skipped", err))
			return
		}
		if !seen[resolved] {
			seen[resolved] = true
			roots = append(roots, resolved)
		}
	}

	for _, r := range ws.EnabledRoots() {
		add(r)
	}
	for _, repo := range ws.Repositories {
		if !repo.Enabled {
			continue
		}
		local, err := ix.provider.Materialize(ctx, repo)
		if err != nil {
			warnings = append(warnings, wserrors.NewAnalysisWarning(repo.URL, "repository unavailable", err))
			continue
		}
		add(local)
	}
	return roots, warnings
}

func resolveDir(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}

func (ix *Indexer) analyzeFile(c Candidate) analyzed {
	out := analyzed{file: types.SourceFile{
		Path:     c.Path,
		RelPath:  c.RelPath,
		Root:     c.Root,
		Language: types.LanguageForPath(c.Path),
		Size:     c.Size,
	}}

	if isBinaryPath(c.Path) {
		return out
	}
	if c.Size > ix.opts.MaxFileSize {
		out.warning = wserrors.NewAnalysisWarning(c.Path, fmt.Sprintf("file exceeds %d bytes, not analyzed", ix.opts.MaxFileSize), nil)
		return out
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		out.warning = wserrors.NewAnalysisWarning(c.Path, "read failed", err)
		return out
	}
	head := data
	if len(head) > types.BinaryPreCheckBytes {
		head = head[:types.BinaryPreCheckBytes]
	}
	if isBinaryContent(head) {
		return out
	}

	out.file.Text = string(data)
	out.file.Hash = xxhash.Sum64(data)

	analyzer, ok := ix.registry.For(c.Path)
	if !ok {
		return out
	}
	res, err := analyzer.Analyze(c.Path, data)
	if err != nil {
		out.warning = wserrors.NewAnalysisWarning(c.Path, "analysis failed", err)
		return out
	}
	out.file.Analyzed = true
	out.result = res
	return out
}
