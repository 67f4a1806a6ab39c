// Package refactor performs text-level edits on workspace files. Every
// mutation goes through WriteFile, which backs up the original, writes
// atomically and restores the backup when a write fails.
//
// Edits never update the published index. Semantic queries keep answering
// from the pre-edit snapshot until the workspace is reindexed.
package refactor

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/wsmcp/internal/core"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/pkg/pathutil"
)

// IndexSource yields the currently published snapshot.
type IndexSource interface {
	Current() *core.WorkspaceIndex
}

// Service is safe for concurrent use. Writes to one path are serialized;
// writes to different paths proceed in parallel.
type Service struct {
	source    IndexSource
	backupDir string
	locks     *pathLocks
	now       func() time.Time
}

func NewService(source IndexSource, backupDir string) *Service {
	if backupDir == "" {
		backupDir = filepath.Join(os.TempDir(), "wsmcp-backups")
	}
	return &Service{
		source:    source,
		backupDir: backupDir,
		locks:     newPathLocks(),
		now:       time.Now,
	}
}

// BackupDir returns the directory backups are written under.
func (s *Service) BackupDir() string {
	return s.backupDir
}

func (s *Service) index() (*core.WorkspaceIndex, error) {
	ix := s.source.Current()
	if ix == nil {
		return nil, wserrors.NewToolError(wserrors.CodeIndex, "workspace index is not available")
	}
	return ix, nil
}

var identifierPattern = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// target is a path that passed the sandbox check.
type target struct {
	Requested string
	Path      string // absolute, symlinks resolved
	Root      string
	RelPath   string // slash separated, relative to Root
}

// resolve maps a requested path onto a workspace root. Relative paths are
// taken from the first root. Symlinks are resolved before the containment
// check, including those of parents of a file that does not exist yet.
func resolve(roots []string, requested string) (target, error) {
	t := target{Requested: requested}
	if strings.TrimSpace(requested) == "" {
		return t, wserrors.InvalidArguments("path is required")
	}
	if len(roots) == 0 {
		return t, wserrors.NewToolError(wserrors.CodeIndex, "workspace has no roots")
	}

	p := requested
	if !filepath.IsAbs(p) {
		p = filepath.Join(roots[0], p)
	}
	resolved, err := resolveExisting(filepath.Clean(p))
	if err != nil {
		return t, wserrors.InvalidArguments("cannot resolve %s: %v", requested, err)
	}

	for _, root := range roots {
		rel, ok := pathutil.Within(root, resolved)
		if !ok {
			continue
		}
		t.Path, t.Root, t.RelPath = resolved, root, rel
		return t, nil
	}
	return t, &wserrors.PathEscapeError{Path: requested, Resolved: resolved}
}

// resolveExisting evaluates symlinks on the longest existing prefix of p and
// re-appends the missing tail.
func resolveExisting(p string) (string, error) {
	var tail []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// pathLocks hands out one mutex per path and forgets it once unused.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lock blocks until path is free and returns the matching unlock.
func (l *pathLocks) lock(path string) func() {
	l.mu.Lock()
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}
