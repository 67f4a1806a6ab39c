package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/wsmcp/internal/types"
	"github.com/standardbeagle/wsmcp/pkg/pathutil"
)

func workspaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Inspect and edit the workspace store",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List workspaces; the active one is marked with *",
				Action: workspaceList,
			},
			{
				Name:      "show",
				Usage:     "Show a workspace (default: the active one)",
				ArgsUsage: "[name]",
				Action:    workspaceShow,
			},
			{
				Name:      "use",
				Usage:     "Mark a workspace as active",
				ArgsUsage: "<name>",
				Action:    workspaceUse,
			},
			{
				Name:      "add",
				Usage:     "Add or replace a workspace",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "root",
						Usage:    "Root directory (repeatable)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "ext",
						Usage: "Extension allow-list entry such as *.cs (repeatable; default all)",
					},
					&cli.StringSliceFlag{
						Name:  "ignore",
						Usage: "Directory name to skip at any depth, such as bin or obj (repeatable)",
					},
				},
				Action: workspaceAdd,
			},
		},
	}
}

func workspaceList(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	f, err := store.Load()
	if err != nil {
		return err
	}
	if len(f.Workspaces) == 0 {
		fmt.Fprintf(c.App.Writer, "no workspaces in %s\n", store.Path())
		return nil
	}
	for _, ws := range f.Workspaces {
		marker := " "
		if ws.Name == f.Active {
			marker = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %s (%d roots)\n", marker, ws.Name, len(ws.EnabledRoots()))
	}
	return nil
}

func workspaceShow(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	var ws *types.Workspace
	if name := c.Args().First(); name != "" {
		ws, err = store.Workspace(name)
	} else {
		ws, err = store.Active()
	}
	if err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	w := c.App.Writer
	fmt.Fprintf(w, "workspace %s\n", ws.Name)
	for _, r := range ws.Roots {
		state := ""
		if r.Disabled {
			state = " (disabled)"
		}
		fmt.Fprintf(w, "  root %s%s\n", pathutil.ToRelative(r.Path, cwd), state)
	}
	for _, repo := range ws.Repositories {
		state := ""
		if !repo.Enabled {
			state = " (disabled)"
		}
		fmt.Fprintf(w, "  repository %s -> %s%s\n", repo.URL, pathutil.ToRelative(repo.Path, cwd), state)
	}
	if len(ws.Extensions) > 0 {
		fmt.Fprintf(w, "  extensions %s\n", strings.Join(ws.Extensions, " "))
	}
	if len(ws.Ignore) > 0 {
		fmt.Fprintf(w, "  ignore %s\n", strings.Join(ws.Ignore, " "))
	}
	return nil
}

func workspaceUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if err := store.SetActive(name); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "active workspace: %s\n", name)
	return nil
}

func workspaceAdd(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}
	ws := types.Workspace{
		Name:       name,
		Extensions: c.StringSlice("ext"),
		Ignore:     c.StringSlice("ignore"),
	}
	for _, root := range c.StringSlice("root") {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve root %q: %w", root, err)
		}
		ws.Roots = append(ws.Roots, types.Root{Path: abs})
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	if err := store.Upsert(ws); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "saved workspace %s to %s\n", name, store.Path())
	return nil
}
