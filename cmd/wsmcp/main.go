package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/wsmcp/internal/config"
	"github.com/standardbeagle/wsmcp/internal/version"
	"github.com/standardbeagle/wsmcp/internal/workspace"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "wsmcp",
		Usage:   "Serve a code workspace to AI assistants over MCP",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "Directory searched for " + config.FileName + " after $HOME",
				Value: ".",
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Workspace store file (default: <user config dir>/wsmcp/workspaces.toml)",
				EnvVars: []string{workspace.EnvStorePath},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			workspaceCommand(),
			listenCommand(),
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// openStore returns the workspace store named by --store or the default path.
func openStore(c *cli.Context) (*workspace.Store, error) {
	path := c.String("store")
	if path == "" {
		p, err := workspace.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return workspace.NewStore(path), nil
}

// loadConfig reads .wsmcp.kdl and applies the command's flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("transport") {
		cfg.Server.Transport = c.String("transport")
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("pipe") {
		cfg.Server.Pipe = c.String("pipe")
	}
	if c.IsSet("no-notify") && c.Bool("no-notify") {
		cfg.Notify.Enabled = false
	}
	if c.IsSet("handshake") {
		cfg.Notify.HandshakePipe = c.String("handshake")
	}
	if c.IsSet("activity") {
		cfg.Notify.ActivityPipe = c.String("activity")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
