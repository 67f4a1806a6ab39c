package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// RepositoryProvider materializes an external repository into a local
// directory. Cloning and pulling live outside this module.
type RepositoryProvider interface {
	Materialize(ctx context.Context, repo types.Repository) (string, error)
}

// LocalProvider uses the descriptor's local path as-is.
type LocalProvider struct{}

func (LocalProvider) Materialize(_ context.Context, repo types.Repository) (string, error) {
	if repo.Path == "" {
		return "", fmt.Errorf("repository %s has no local path", repo.URL)
	}
	info, err := os.Stat(repo.Path)
	if err != nil {
		return "", fmt.Errorf("repository %s: %w", repo.URL, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository %s: %s is not a directory", repo.URL, repo.Path)
	}
	return repo.Path, nil
}
