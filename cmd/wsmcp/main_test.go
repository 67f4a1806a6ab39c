package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/wsmcp/internal/notify"
	"github.com/standardbeagle/wsmcp/internal/workspace"
)

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.RunContext(ctx, append([]string{"wsmcp"}, args...))
	return out.String(), err
}

func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "wsc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestWorkspaceCommands(t *testing.T) {
	store := filepath.Join(t.TempDir(), "workspaces.toml")
	root := t.TempDir()
	ctx := context.Background()

	out, err := run(t, ctx, "--store", store, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no workspaces")

	_, err = run(t, ctx, "--store", store, "workspace", "add", "--root", root, "--ext", "*.cs", "--ignore", "bin", "billing")
	require.NoError(t, err)
	_, err = run(t, ctx, "--store", store, "workspace", "add", "--root", root, "ops")
	require.NoError(t, err)

	out, err = run(t, ctx, "--store", store, "workspace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* billing (1 roots)")
	assert.Contains(t, out, "  ops (1 roots)")

	out, err = run(t, ctx, "--store", store, "workspace", "use", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "active workspace: ops")

	ws, err := workspace.NewStore(store).Active()
	require.NoError(t, err)
	assert.Equal(t, "ops", ws.Name)

	out, err = run(t, ctx, "--store", store, "workspace", "show", "billing")
	require.NoError(t, err)
	assert.Contains(t, out, "workspace billing")
	assert.Contains(t, out, "extensions *.cs")
	assert.Contains(t, out, "ignore bin")

	_, err = run(t, ctx, "--store", store, "workspace", "use", "missing")
	assert.Error(t, err)
	_, err = run(t, ctx, "--store", store, "workspace", "use")
	assert.Error(t, err)
}

func TestServe_StartupErrors(t *testing.T) {
	ctx := context.Background()
	cfgDir := t.TempDir()

	_, err := run(t, ctx, "--config-dir", cfgDir, "--store", filepath.Join(t.TempDir(), "ws.toml"), "serve")
	assert.Error(t, err, "--active is required")

	_, err = run(t, ctx, "--config-dir", cfgDir, "--store", filepath.Join(t.TempDir(), "ws.toml"), "serve", "--active", "--no-notify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active workspace")

	store := filepath.Join(t.TempDir(), "ws.toml")
	missing := filepath.Join(t.TempDir(), "gone")
	_, err = run(t, ctx, "--store", store, "workspace", "add", "--root", missing, "broken")
	require.NoError(t, err)
	_, err = run(t, ctx, "--config-dir", cfgDir, "--store", store, "serve", "--active", "--no-notify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index workspace broken")

	_, err = run(t, ctx, "--config-dir", cfgDir, "--store", store, "serve", "--active", "--transport", "carrier-pigeon")
	assert.Error(t, err)
}

func TestServe_PipeEndToEnd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.cs"), []byte(`class Foo
{
    void Bar()
    {
        Baz();
    }
}
`), 0644))

	dir := shortTempDir(t)
	store := filepath.Join(dir, "ws.toml")
	pipe := filepath.Join(dir, "mcp.sock")
	handshake := filepath.Join(dir, "hs.sock")
	activity := filepath.Join(dir, "act.sock")

	_, err := run(t, context.Background(), "--store", store, "workspace", "add", "--root", root, "shop")
	require.NoError(t, err)

	hl, err := notify.Listen(handshake)
	require.NoError(t, err)
	defer hl.Close()
	hctx, hcancel := context.WithCancel(context.Background())
	handshakes := make(chan string, 1)
	hdone := make(chan struct{})
	go func() {
		defer close(hdone)
		_ = hl.Serve(hctx, func(m notify.Message) { handshakes <- m.Workspace })
	}()
	defer func() {
		hcancel()
		<-hdone
	}()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "--config-dir", dir, "--store", store, "serve", "--active",
			"--transport", "pipe", "--pipe", pipe, "--handshake", handshake, "--activity", activity)
		served <- err
	}()

	select {
	case name := <-handshakes:
		assert.Equal(t, "shop", name)
	case <-time.After(10 * time.Second):
		t.Fatal("no handshake after indexing")
	}

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("unix", pipe)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{Name: "e2e", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, &mcp.IOTransport{Reader: conn, Writer: conn}, nil)
	require.NoError(t, err)
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "find_usages",
		Arguments: map[string]any{"symbolName": "Baz"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, `"count":1`)
	_ = cs.Close()

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	writeMessage(&buf, "handshake", notify.ParseLine("shop"))
	writeMessage(&buf, "activity", notify.ParseLine("shop|error:write_file:path_escape"))
	writeMessage(&buf, "activity", notify.ParseLine("shop|disconnected"))
	assert.Equal(t, "handshake  shop\n"+
		"activity   shop         error      write_file (path_escape)\n"+
		"activity   shop         disconnected\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wsmcp")
}
