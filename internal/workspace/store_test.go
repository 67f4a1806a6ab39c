package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/wsmcp/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "wsmcp", "workspaces.toml"))
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := newTestStore(t)
	f, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, f.Workspaces)

	_, err = s.Active()
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ws := types.Workspace{
		Name:       "billing",
		Roots:      []types.Root{{Path: "/src/billing"}, {Path: "/src/legacy", Disabled: true}},
		Extensions: []string{"*.cs"},
		Ignore:     []string{"bin", "obj"},
		Repositories: []types.Repository{
			{URL: "https://example.com/shared.git", Path: "/cache/shared", Enabled: true},
		},
	}
	require.NoError(t, s.Upsert(ws))
	require.NoError(t, s.Upsert(types.Workspace{Name: "web", Roots: []types.Root{{Path: "/src/web"}}}))

	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, ws, *active)

	require.NoError(t, s.SetActive("web"))
	active, err = s.Active()
	require.NoError(t, err)
	assert.Equal(t, "web", active.Name)

	assert.Error(t, s.SetActive("missing"))

	got, err := s.Workspace("billing")
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/billing"}, got.EnabledRoots())
}

func TestStore_ReadsHandWrittenFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	content := `active = "api"

[[workspace]]
name = "api"
extensions = ["cs", ".csproj"]
ignore = ["bin", "obj"]

  [[workspace.root]]
  path = "/src/api"
`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0644))

	ws, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, "api", ws.Name)
	assert.Equal(t, []string{"cs", ".csproj"}, ws.Extensions)
	assert.Equal(t, []string{"/src/api"}, ws.EnabledRoots())
}

func TestWatcher_ReportsActiveSwitch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(types.Workspace{Name: "a", Roots: []types.Root{{Path: "/a"}}}))
	require.NoError(t, s.Upsert(types.Workspace{Name: "b", Roots: []types.Root{{Path: "/b"}}}))

	w, err := NewWatcher(s)
	require.NoError(t, err)

	switched := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx, func(name string) { switched <- name })
	defer func() {
		cancel()
		require.NoError(t, w.Close())
	}()

	require.NoError(t, s.SetActive("b"))

	select {
	case name := <-switched:
		assert.Equal(t, "b", name)
	case <-time.After(5 * time.Second):
		t.Fatal("workspace switch was not reported")
	}
}

func TestLocalProvider(t *testing.T) {
	dir := t.TempDir()
	p := LocalProvider{}

	path, err := p.Materialize(context.Background(), types.Repository{URL: "git@x:y.git", Path: dir, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	_, err = p.Materialize(context.Background(), types.Repository{URL: "git@x:z.git", Path: filepath.Join(dir, "nope")})
	assert.Error(t, err)

	_, err = p.Materialize(context.Background(), types.Repository{URL: "git@x:z.git"})
	assert.Error(t, err)
}
