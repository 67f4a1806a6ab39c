package refactor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/wsmcp/internal/debug"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// renameFile is swapped in tests to simulate a failure mid-write.
var renameFile = os.Rename

const backupTimeFormat = "20060102T150405.000000000"

// WriteResult describes a completed write.
type WriteResult struct {
	Path         string `json:"path"`
	File         string `json:"file"`
	BackupPath   string `json:"backupPath,omitempty"`
	Created      bool   `json:"created"`
	BytesWritten int    `json:"bytesWritten"`
	Hash         string `json:"hash"`
}

// WriteFile replaces the content of path. An existing file is first copied
// to a timestamped backup; the new content goes to a temp file in the same
// directory and is renamed over the target. If anything fails after the
// backup, the original content is restored from it.
func (s *Service) WriteFile(path, content string) (*WriteResult, error) {
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	t, err := resolve(ix.Roots, path)
	if err != nil {
		return nil, err
	}
	return s.write(ix.Workspace, t, []byte(content))
}

func (s *Service) write(workspace string, t target, content []byte) (*WriteResult, error) {
	unlock := s.locks.lock(t.Path)
	defer unlock()

	res := &WriteResult{Path: t.Path, File: t.RelPath, BytesWritten: len(content), Hash: fmt.Sprintf("%016x", xxhash.Sum64(content))}
	mode := os.FileMode(0644)
	var original []byte

	info, err := os.Stat(t.Path)
	switch {
	case err == nil && info.IsDir():
		return nil, wserrors.InvalidArguments("%s is a directory", t.RelPath)
	case err == nil:
		mode = info.Mode().Perm()
		original, err = os.ReadFile(t.Path)
		if err != nil {
			return nil, wserrors.NewWriteFailure(t.Path, "", false, err)
		}
		res.BackupPath, err = s.backup(workspace, t, original, mode)
		if err != nil {
			return nil, wserrors.NewWriteFailure(t.Path, "", false, fmt.Errorf("backup: %w", err))
		}
	case os.IsNotExist(err):
		res.Created = true
	default:
		return nil, wserrors.NewWriteFailure(t.Path, "", false, err)
	}

	if err := writeAtomic(t.Path, content, mode); err != nil {
		if res.Created {
			return nil, wserrors.NewWriteFailure(t.Path, "", false, err)
		}
		restored := restore(t.Path, original, mode) == nil
		debug.LogRefactor("write %s failed, restored=%v: %v", t.Path, restored, err)
		return nil, wserrors.NewWriteFailure(t.Path, res.BackupPath, restored, err)
	}

	debug.LogRefactor("wrote %s (%d bytes, backup %q)", t.Path, len(content), res.BackupPath)
	return res, nil
}

// backup copies original to <backupDir>/<workspace>/<rel>.<timestamp>.bak.
func (s *Service) backup(workspace string, t target, original []byte, mode os.FileMode) (string, error) {
	name := filepath.Join(s.backupDir, workspace, filepath.FromSlash(t.RelPath)) + "." + s.now().Format(backupTimeFormat) + ".bak"
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(name, original, mode|0600); err != nil {
		return "", err
	}
	return name, nil
}

func writeAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".wsmcp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return cleanup(err)
	}
	if err := renameFile(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// restore puts original back if the target no longer holds it.
func restore(path string, original []byte, mode os.FileMode) error {
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, original) {
		return nil
	}
	return os.WriteFile(path, original, mode)
}
