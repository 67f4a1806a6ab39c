package indexing

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/wsmcp/internal/core"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// Holder owns the published snapshot of one workspace. Readers take the
// current pointer and keep using it for the whole query; a reindex swaps
// the pointer only after the new snapshot is complete.
type Holder struct {
	indexer    *Indexer
	workspace  *types.Workspace
	current    atomic.Pointer[core.WorkspaceIndex]
	generation atomic.Uint64
	group      singleflight.Group
}

func NewHolder(indexer *Indexer, ws *types.Workspace) *Holder {
	return &Holder{indexer: indexer, workspace: ws}
}

// Workspace returns the workspace this holder indexes.
func (h *Holder) Workspace() *types.Workspace {
	return h.workspace
}

// Current returns the published snapshot, or nil before the first build.
func (h *Holder) Current() *core.WorkspaceIndex {
	return h.current.Load()
}

// Reindex builds and publishes a new generation. Concurrent callers share
// one build. On failure the previous snapshot stays published.
func (h *Holder) Reindex(ctx context.Context) (*core.WorkspaceIndex, error) {
	v, err, _ := h.group.Do("reindex", func() (interface{}, error) {
		gen := h.generation.Add(1)
		snapshot, err := h.indexer.Build(ctx, h.workspace, gen)
		if err != nil {
			return nil, err
		}
		h.current.Store(snapshot)
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.WorkspaceIndex), nil
}
