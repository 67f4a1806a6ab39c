package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/standardbeagle/wsmcp/internal/types"
)

// FileName is the server configuration file looked up in $HOME and the working directory.
const FileName = ".wsmcp.kdl"

// Transport names accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportPipe  = "pipe"
	TransportSSE   = "sse"
)

type Config struct {
	Index    Index
	Refactor Refactor
	Notify   Notify
	Server   Server
	Search   Search
	Context  Context
}

type Index struct {
	MaxFileSize      int64
	RespectGitignore bool
	Workers          int
}

type Refactor struct {
	BackupDir string // empty means <tmp>/wsmcp-backups
}

type Notify struct {
	Enabled       bool
	HandshakePipe string
	ActivityPipe  string
	DialTimeout   time.Duration
	QueueSize     int
}

type Server struct {
	Transport       string
	Addr            string // SSE listen address
	Pipe            string // local socket path for the pipe transport
	ShutdownTimeout time.Duration
}

type Search struct {
	MaxResults   int
	ContextLines int
}

type Context struct {
	MaxFiles  int
	MaxTokens int
}

// Default returns the built-in configuration.
func Default() *Config {
	tmp := os.TempDir()
	return &Config{
		Index: Index{
			MaxFileSize: types.DefaultMaxFileSize,
			Workers:     runtime.NumCPU(),
		},
		Refactor: Refactor{
			BackupDir: filepath.Join(tmp, "wsmcp-backups"),
		},
		Notify: Notify{
			Enabled:       true,
			HandshakePipe: filepath.Join(tmp, "wsmcp-handshake.sock"),
			ActivityPipe:  filepath.Join(tmp, "wsmcp-activity.sock"),
			DialTimeout:   250 * time.Millisecond,
			QueueSize:     64,
		},
		Server: Server{
			Transport:       TransportStdio,
			Addr:            "127.0.0.1:8765",
			Pipe:            filepath.Join(tmp, "wsmcp.sock"),
			ShutdownTimeout: 10 * time.Second,
		},
		Search: Search{
			MaxResults:   50,
			ContextLines: 2,
		},
		Context: Context{
			MaxFiles:  10,
			MaxTokens: 8000,
		},
	}
}

// Load builds the configuration from defaults, then $HOME/.wsmcp.kdl, then
// <dir>/.wsmcp.kdl. Later files override earlier ones key by key.
func Load(dir string) (*Config, error) {
	cfg := Default()

	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	if dir != "" {
		paths = append(paths, filepath.Join(dir, FileName))
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err == nil {
			p = abs
		}
		if seen[p] {
			continue
		}
		seen[p] = true

		content, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if err := applyKDL(cfg, string(content)); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportPipe, TransportSSE:
	default:
		return fmt.Errorf("server.transport must be one of stdio, pipe, sse (got %q)", c.Server.Transport)
	}
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index.max_file_size must be positive")
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 1
	}
	if c.Notify.DialTimeout <= 0 {
		return fmt.Errorf("notify.dial_timeout_ms must be positive")
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 1
	}
	if c.Search.MaxResults <= 0 || c.Context.MaxFiles <= 0 || c.Context.MaxTokens <= 0 {
		return fmt.Errorf("search and context limits must be positive")
	}
	return nil
}
