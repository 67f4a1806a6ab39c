package indexing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func relPaths(files []*types.SourceFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	sort.Strings(out)
	return out
}

func TestFilter(t *testing.T) {
	f := NewFilter([]string{"*.cs", ".java", "TS"}, []string{"bin", "OBJ"})

	assert.True(t, f.Allow("src/Foo.cs"))
	assert.True(t, f.Allow("src/Foo.CS"))
	assert.True(t, f.Allow("Main.java"))
	assert.True(t, f.Allow("web/app.ts"))
	assert.False(t, f.Allow("README.md"))
	assert.False(t, f.Allow("obj/Generated.cs"))
	assert.False(t, f.Allow("src/Bin/Debug/Foo.cs"))
	assert.True(t, f.Allow("objects/Foo.cs"))

	all := NewFilter([]string{"*"}, nil)
	assert.True(t, all.Allow("anything.bin"))
	assert.True(t, NewFilter(nil, nil).Allow("x.md"))
}

func TestBuild_FiltersAndIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.cs":             "class A { }",
		"obj/Generated.cs": "class G { }",
		"bin/Debug/Old.cs": "class O { }",
		"src/Deep/B.cs":    "class B { }",
		"notes.txt":        "not code",
		"src/Program.CS":   "class P { }",
	})

	ws := &types.Workspace{
		Name:       "demo",
		Roots:      []types.Root{{Path: root}},
		Extensions: []string{"*.cs"},
		Ignore:     []string{"bin", "obj"},
	}
	ix, err := NewIndexer(nil, nil, Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.cs", "src/Deep/B.cs", "src/Program.CS"}, relPaths(ix.Files))
	assert.Len(t, ix.Types, 3)
}

func TestBuild_DeduplicatesAcrossRoots(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"lib/Shared.cs": "class Shared { }",
		"app/App.cs":    "class App { }",
	})

	ws := &types.Workspace{
		Name: "overlap",
		Roots: []types.Root{
			{Path: root},
			{Path: filepath.Join(root, "lib")},
			{Path: filepath.Join(root, "missing"), Disabled: true},
		},
	}
	ix, err := NewIndexer(nil, nil, Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"app/App.cs", "lib/Shared.cs"}, relPaths(ix.Files))
	assert.Len(t, ix.Symbols.BySimpleName("Shared"), 1)
}

func TestBuild_SymlinkedFileCountedOnce(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"real/Thing.cs": "class Thing { }"})
	if err := os.Symlink(filepath.Join(root, "real", "Thing.cs"), filepath.Join(root, "Alias.cs")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	ws := &types.Workspace{Name: "links", Roots: []types.Root{{Path: root}}}
	ix, err := NewIndexer(nil, nil, Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)
	assert.Len(t, ix.Files, 1)
}

func TestBuild_NoExistingRoot(t *testing.T) {
	ws := &types.Workspace{Name: "ghost", Roots: []types.Root{{Path: filepath.Join(t.TempDir(), "nope")}}}
	_, err := NewIndexer(nil, nil, Options{}).Build(context.Background(), ws, 1)

	var indexErr *wserrors.IndexError
	require.ErrorAs(t, err, &indexErr)
	assert.Equal(t, "ghost", indexErr.Workspace)
}

func TestBuild_RepositoriesAndUnanalyzedFiles(t *testing.T) {
	root := t.TempDir()
	repo := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md": "# hi",
		"big.cs":    "class Big { }" + strings.Repeat(" ", 200),
	})
	writeFiles(t, repo, map[string]string{"Vendor.cs": "class Vendor { void Run() { Go(); } }"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.cs"), []byte{0x00, 0x01, 0x02, 'c'}, 0644))

	ws := &types.Workspace{
		Name:  "mixed",
		Roots: []types.Root{{Path: root}},
		Repositories: []types.Repository{
			{URL: "https://example.com/vendor.git", Path: repo, Enabled: true},
			{URL: "https://example.com/off.git", Path: repo, Enabled: false},
			{URL: "https://example.com/gone.git", Path: filepath.Join(repo, "gone"), Enabled: true},
		},
	}
	ix, err := NewIndexer(nil, nil, Options{MaxFileSize: 100}).Build(context.Background(), ws, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md", "Vendor.cs", "big.cs", "blob.cs"}, relPaths(ix.Files))
	for _, f := range ix.Files {
		switch f.RelPath {
		case "Vendor.cs":
			assert.True(t, f.Analyzed)
		default:
			assert.False(t, f.Analyzed, f.RelPath)
		}
	}
	assert.Len(t, ix.Symbols.CallsTo("Go"), 1)

	var reasons []string
	for _, w := range ix.Warnings {
		reasons = append(reasons, w.Reason)
	}
	assert.Contains(t, reasons, "repository unavailable")
	assert.Contains(t, reasons, "file exceeds 100 bytes, not analyzed")
}

func TestBuild_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":     "generated/\n*.g.cs\n",
		"Keep.cs":        "class Keep { }",
		"Model.g.cs":     "class Model { }",
		"generated/X.cs": "class X { }",
	})
	ws := &types.Workspace{Name: "gi", Roots: []types.Root{{Path: root}}, Extensions: []string{"cs"}}

	ix, err := NewIndexer(nil, nil, Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)
	assert.Len(t, ix.Files, 3)

	ix, err = NewIndexer(nil, nil, Options{RespectGitignore: true}).Build(context.Background(), ws, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep.cs"}, relPaths(ix.Files))
}

func TestHolder_SnapshotsAreSingleGeneration(t *testing.T) {
	root := t.TempDir()
	const fileCount = 8
	write := func(gen int) {
		for i := 0; i < fileCount; i++ {
			content := fmt.Sprintf("// gen %d\nclass C%d { void M() { Gen%d(); } }\n", gen, i, gen)
			require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("c%d.cs", i)), []byte(content), 0644))
		}
	}
	write(0)

	ws := &types.Workspace{Name: "gens", Roots: []types.Root{{Path: root}}}
	h := NewHolder(NewIndexer(nil, nil, Options{Workers: 4}), ws)
	first, err := h.Reindex(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Files, fileCount)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var inconsistent sync.Map
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := h.Current()
				marker := strings.SplitN(snap.Files[0].Text, "\n", 2)[0]
				for _, f := range snap.Files {
					if !strings.HasPrefix(f.Text, marker+"\n") {
						inconsistent.Store(snap.Generation, f.RelPath)
					}
				}
			}
		}()
	}

	for gen := 1; gen <= 5; gen++ {
		write(gen)
		snap, err := h.Reindex(context.Background())
		require.NoError(t, err)
		assert.Len(t, snap.Symbols.CallsTo(fmt.Sprintf("Gen%d", gen)), fileCount)
	}
	close(stop)
	wg.Wait()

	inconsistent.Range(func(k, v any) bool {
		t.Errorf("generation %v mixed content at %v", k, v)
		return true
	})
	assert.Equal(t, uint64(6), h.Current().Generation)
	assert.Len(t, first.Symbols.CallsTo("Gen0"), fileCount)
}

func TestHolder_FailedReindexKeepsPrevious(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"A.cs": "class A { }"})
	ws := &types.Workspace{Name: "keep", Roots: []types.Root{{Path: root}}}
	h := NewHolder(NewIndexer(nil, nil, Options{}), ws)

	snap, err := h.Reindex(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root))
	_, err = h.Reindex(context.Background())
	require.Error(t, err)
	assert.Same(t, snap, h.Current())
}
