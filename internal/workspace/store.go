package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/wsmcp/internal/debug"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// EnvStorePath overrides the location of the workspace store.
const EnvStorePath = "WSMCP_WORKSPACES"

// File is the persisted workspace state shared with the UI process.
type File struct {
	Active     string            `toml:"active"`
	Workspaces []types.Workspace `toml:"workspace"`
}

// Find returns the workspace with the given name.
func (f *File) Find(name string) (*types.Workspace, bool) {
	for i := range f.Workspaces {
		if f.Workspaces[i].Name == name {
			return &f.Workspaces[i], true
		}
	}
	return nil, false
}

// Store reads and writes the workspace file. The server reads it once at
// startup; the UI writes it when the user switches workspaces.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns $WSMCP_WORKSPACES or <user config dir>/wsmcp/workspaces.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvStorePath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "wsmcp", "workspaces.toml"), nil
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the store. A missing file is an empty store.
func (s *Store) Load() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace store: %w", err)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse workspace store %s: %w", s.path, err)
	}
	return &f, nil
}

// Save writes the store atomically.
func (s *Store) Save(f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(f)
}

func (s *Store) save(f *File) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode workspace store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".workspaces-*.toml")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Active returns the workspace currently marked active.
func (s *Store) Active() (*types.Workspace, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	if f.Active == "" {
		return nil, fmt.Errorf("no active workspace set in %s", s.path)
	}
	ws, ok := f.Find(f.Active)
	if !ok {
		return nil, fmt.Errorf("active workspace %q is not defined in %s", f.Active, s.path)
	}
	return ws, nil
}

// SetActive marks an existing workspace as active.
func (s *Store) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Find(name); !ok {
		return fmt.Errorf("workspace %q does not exist", name)
	}
	f.Active = name
	debug.LogWorkspace("active workspace set to %s", name)
	return s.save(f)
}

// Workspace returns the named workspace.
func (s *Store) Workspace(name string) (*types.Workspace, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	ws, ok := f.Find(name)
	if !ok {
		return nil, fmt.Errorf("workspace %q does not exist", name)
	}
	return ws, nil
}

// Upsert adds the workspace or replaces the one with the same name.
func (s *Store) Upsert(ws types.Workspace) error {
	if ws.Name == "" {
		return fmt.Errorf("workspace name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	if existing, ok := f.Find(ws.Name); ok {
		*existing = ws
	} else {
		f.Workspaces = append(f.Workspaces, ws)
	}
	if f.Active == "" {
		f.Active = ws.Name
	}
	return s.save(f)
}
