package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.DialTimeout)
	assert.True(t, cfg.Notify.Enabled)
	assert.False(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 8000, cfg.Context.MaxTokens)
}

func TestParse_AllSections(t *testing.T) {
	content := `
index {
    max_file_size "512KB"
    respect_gitignore true
    workers 2
}
refactor {
    backup_dir "/var/tmp/backups"
}
notify {
    enabled false
    handshake_pipe "/tmp/hs.sock"
    activity_pipe "/tmp/act.sock"
    dial_timeout_ms 100
    queue_size 8
}
server {
    transport "SSE"
    addr ":9000"
    pipe "/tmp/wsmcp-test.sock"
    shutdown_timeout_ms 1500
}
search {
    max_results 20
    context_lines 4
}
context {
    max_files 3
    max_tokens 1200
}
`
	cfg, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, int64(512*1024), cfg.Index.MaxFileSize)
	assert.True(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, "/var/tmp/backups", cfg.Refactor.BackupDir)
	assert.False(t, cfg.Notify.Enabled)
	assert.Equal(t, "/tmp/hs.sock", cfg.Notify.HandshakePipe)
	assert.Equal(t, "/tmp/act.sock", cfg.Notify.ActivityPipe)
	assert.Equal(t, 100*time.Millisecond, cfg.Notify.DialTimeout)
	assert.Equal(t, 8, cfg.Notify.QueueSize)
	assert.Equal(t, TransportSSE, cfg.Server.Transport)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/wsmcp-test.sock", cfg.Server.Pipe)
	assert.Equal(t, 1500*time.Millisecond, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Equal(t, 4, cfg.Search.ContextLines)
	assert.Equal(t, 3, cfg.Context.MaxFiles)
	assert.Equal(t, 1200, cfg.Context.MaxTokens)
}

func TestParse_InvalidTransport(t *testing.T) {
	_, err := Parse(`server { transport "carrier-pigeon"; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(`index { max_file_size `)
	require.Error(t, err)
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"100":  100,
		"2KB":  2048,
		"4 MB": 4 << 20,
		"1gb":  1 << 30,
		"512B": 512,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSize("lots")
	assert.Error(t, err)
}

func TestLoad_ProjectOverridesHome(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, os.WriteFile(filepath.Join(home, FileName), []byte(`
search { max_results 10; context_lines 1; }
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(project, FileName), []byte(`
search { max_results 30; }
`), 0644))

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.MaxResults)
	assert.Equal(t, 1, cfg.Search.ContextLines)
}

func TestLoad_NoFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().Search, cfg.Search)
}
