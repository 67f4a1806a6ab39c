package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Parse reads a configuration document on top of the defaults.
func Parse(content string) (*Config, error) {
	cfg := Default()
	if err := applyKDL(cfg, content); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if size, ok := sizeArg(cn); ok {
						cfg.Index.MaxFileSize = size
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.Workers = v
					}
				}
			}
		case "refactor":
			for _, cn := range n.Children {
				assignSimpleString(cn, "backup_dir", func(v string) { cfg.Refactor.BackupDir = v })
			}
		case "notify":
			for _, cn := range n.Children {
				assignSimpleString(cn, "handshake_pipe", func(v string) { cfg.Notify.HandshakePipe = v })
				assignSimpleString(cn, "activity_pipe", func(v string) { cfg.Notify.ActivityPipe = v })
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Notify.Enabled = b
					}
				case "dial_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Notify.DialTimeout = time.Duration(v) * time.Millisecond
					}
				case "queue_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Notify.QueueSize = v
					}
				}
			}
		case "server":
			for _, cn := range n.Children {
				assignSimpleString(cn, "transport", func(v string) { cfg.Server.Transport = strings.ToLower(v) })
				assignSimpleString(cn, "addr", func(v string) { cfg.Server.Addr = v })
				assignSimpleString(cn, "pipe", func(v string) { cfg.Server.Pipe = v })
				if nodeName(cn) == "shutdown_timeout_ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Server.ShutdownTimeout = time.Duration(v) * time.Millisecond
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxResults = v
					}
				case "context_lines":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.ContextLines = v
					}
				}
			}
		case "context":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_files":
					if v, ok := firstIntArg(cn); ok {
						cfg.Context.MaxFiles = v
					}
				case "max_tokens":
					if v, ok := firstIntArg(cn); ok {
						cfg.Context.MaxTokens = v
					}
				}
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// sizeArg accepts a plain byte count or a string such as "512KB" or "4MB".
func sizeArg(n *document.Node) (int64, bool) {
	if v, ok := firstIntArg(n); ok {
		return int64(v), true
	}
	s, ok := firstStringArg(n)
	if !ok {
		return 0, false
	}
	size, err := parseSize(s)
	return size, err == nil
}

func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return v * multiplier, nil
}
