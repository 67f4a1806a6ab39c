package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	root := filepath.FromSlash("/home/user/project")
	tests := []struct {
		name string
		path string
		root string
		want string
	}{
		{"inside root", filepath.FromSlash("/home/user/project/src/main.cs"), root, filepath.FromSlash("src/main.cs")},
		{"root itself", root, root, "."},
		{"outside root", filepath.FromSlash("/other/file.cs"), root, filepath.FromSlash("/other/file.cs")},
		{"sibling with shared prefix", filepath.FromSlash("/home/user/project2/a.cs"), root, filepath.FromSlash("/home/user/project2/a.cs")},
		{"already relative", "src/main.cs", root, "src/main.cs"},
		{"empty path", "", root, ""},
		{"empty root", filepath.FromSlash("/a/b.cs"), "", filepath.FromSlash("/a/b.cs")},
		{"dotdot file name stays inside", filepath.FromSlash("/home/user/project/..hidden"), root, "..hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToRelative(tt.path, tt.root))
		})
	}
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/ws/app")

	rel, ok := Within(root, filepath.FromSlash("/ws/app/src/Program.cs"))
	assert.True(t, ok)
	assert.Equal(t, "src/Program.cs", rel)

	_, ok = Within(root, root)
	assert.False(t, ok, "the root itself is not a file inside it")

	_, ok = Within(root, filepath.FromSlash("/ws/app2/x.cs"))
	assert.False(t, ok)

	_, ok = Within(root, filepath.FromSlash("/ws/other/../app/../x.cs"))
	assert.False(t, ok)

	rel, ok = Within(root, filepath.FromSlash("/ws/app/..data/x.cs"))
	assert.True(t, ok)
	assert.Equal(t, "..data/x.cs", rel)
}
