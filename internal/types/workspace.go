package types

import "strings"

// Workspace is a named set of roots indexed as one unit. It is owned by the
// workspace store and read-only to the indexer.
type Workspace struct {
	Name         string       `toml:"name" json:"name"`
	Roots        []Root       `toml:"root" json:"roots"`
	Extensions   []string     `toml:"extensions,omitempty" json:"extensions,omitempty"`
	Ignore       []string     `toml:"ignore,omitempty" json:"ignore,omitempty"`
	Repositories []Repository `toml:"repository,omitempty" json:"repositories,omitempty"`
}

// Root is one directory of a workspace.
type Root struct {
	Path     string `toml:"path" json:"path"`
	Disabled bool   `toml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Repository describes an external repository materialized into a local directory.
type Repository struct {
	URL     string `toml:"url" json:"url"`
	Path    string `toml:"path" json:"path"`
	Enabled bool   `toml:"enabled" json:"enabled"`
}

// EnabledRoots returns the paths of the roots not marked disabled, in order.
func (w *Workspace) EnabledRoots() []string {
	var roots []string
	for _, r := range w.Roots {
		if !r.Disabled && strings.TrimSpace(r.Path) != "" {
			roots = append(roots, r.Path)
		}
	}
	return roots
}
