package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/wsmcp/internal/config"
	"github.com/standardbeagle/wsmcp/internal/debug"
	"github.com/standardbeagle/wsmcp/internal/indexing"
	"github.com/standardbeagle/wsmcp/internal/mcp"
	"github.com/standardbeagle/wsmcp/internal/notify"
	"github.com/standardbeagle/wsmcp/internal/workspace"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Index the active workspace and serve it over MCP",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "active",
				Usage:    "Serve the workspace currently marked active in the store",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "stdio, pipe or sse",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address of the sse transport",
			},
			&cli.StringFlag{
				Name:  "pipe",
				Usage: "Local socket path of the pipe transport",
			},
			&cli.BoolFlag{
				Name:  "no-notify",
				Usage: "Do not signal the desktop UI",
			},
			&cli.StringFlag{
				Name:  "handshake",
				Usage: "Handshake socket path of the desktop UI",
			},
			&cli.StringFlag{
				Name:  "activity",
				Usage: "Activity socket path of the desktop UI",
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// stdout carries the protocol on stdio; diagnostics go to a file.
	debug.SetMCPMode(cfg.Server.Transport == config.TransportStdio)
	if debug.IsEnabled() {
		if path, err := debug.InitLogFile(); err == nil {
			debug.LogMCP("logging to %s", path)
		}
	}
	defer debug.Close()

	store, err := openStore(c)
	if err != nil {
		return debug.Fatal("%v", err)
	}
	ws, err := store.Active()
	if err != nil {
		return debug.Fatal("%v", err)
	}

	var notifier *notify.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.New(ws.Name, notify.Options{
			HandshakePath: cfg.Notify.HandshakePipe,
			ActivityPath:  cfg.Notify.ActivityPipe,
			DialTimeout:   cfg.Notify.DialTimeout,
			QueueSize:     cfg.Notify.QueueSize,
		})
	}

	indexer := indexing.NewIndexer(nil, nil, indexing.Options{
		MaxFileSize:      cfg.Index.MaxFileSize,
		RespectGitignore: cfg.Index.RespectGitignore,
		Workers:          cfg.Index.Workers,
	})
	server := mcp.NewServer(cfg, indexing.NewHolder(indexer, ws), notifier)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Notify.DialTimeout*4)
		defer cancel()
		notifier.Close(closeCtx)
	}()

	if err := server.Init(ctx); err != nil {
		return debug.Fatal("failed to index workspace %s: %v", ws.Name, err)
	}
	if err := notifier.Handshake(ctx); err != nil {
		debug.LogNotify("handshake not delivered: %v", err)
	}

	if watcher, err := workspace.NewWatcher(store); err != nil {
		debug.LogWorkspace("not watching %s: %v", store.Path(), err)
	} else {
		watcher.Start(ctx, server.WorkspaceSwitched)
		defer watcher.Close()
	}

	serveErr := make(chan error, 1)
	go func() {
		switch cfg.Server.Transport {
		case config.TransportPipe:
			serveErr <- server.ServePipe(ctx, cfg.Server.Pipe)
		case config.TransportSSE:
			serveErr <- server.ServeSSE(ctx, cfg.Server.Addr)
		default:
			serveErr <- server.ServeStdio(ctx)
		}
	}()

	var (
		runErr   error
		returned bool
	)
	select {
	case runErr = <-serveErr:
		returned = true
	case <-ctx.Done():
		debug.LogMCP("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		debug.LogMCP("shutdown: %v", err)
	}
	if !returned {
		select {
		case runErr = <-serveErr:
		case <-shutdownCtx.Done():
			debug.LogMCP("transport did not stop before the shutdown timeout")
		}
	}
	if runErr != nil {
		return debug.Fatal("serve %s: %v", cfg.Server.Transport, runErr)
	}
	return nil
}
