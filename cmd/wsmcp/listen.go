package main

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/wsmcp/internal/notify"
)

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Print handshake and activity signals as the desktop UI would receive them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "handshake",
				Usage: "Handshake socket path",
			},
			&cli.StringFlag{
				Name:  "activity",
				Usage: "Activity socket path",
			},
		},
		Action: listen,
	}
}

func listen(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	printer := func(channel string) func(notify.Message) {
		return func(m notify.Message) {
			mu.Lock()
			defer mu.Unlock()
			writeMessage(c.App.Writer, channel, m)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range []struct {
		name string
		path string
	}{
		{"handshake", cfg.Notify.HandshakePipe},
		{"activity", cfg.Notify.ActivityPipe},
	} {
		l, err := notify.Listen(ch.path)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", ch.path, err)
		}
		defer l.Close()
		fmt.Fprintf(c.App.Writer, "listening for %s on %s\n", ch.name, ch.path)

		handler := printer(ch.name)
		g.Go(func() error { return l.Serve(ctx, handler) })
	}
	return g.Wait()
}

func writeMessage(w io.Writer, channel string, m notify.Message) {
	switch {
	case channel == "handshake":
		fmt.Fprintf(w, "handshake  %s\n", m.Workspace)
	case m.Tool != "" && m.Detail != "":
		fmt.Fprintf(w, "activity   %-12s %-10s %s (%s)\n", m.Workspace, m.Kind, m.Tool, m.Detail)
	case m.Tool != "":
		fmt.Fprintf(w, "activity   %-12s %-10s %s\n", m.Workspace, m.Kind, m.Tool)
	default:
		fmt.Fprintf(w, "activity   %-12s %s\n", m.Workspace, m.Event)
	}
}
