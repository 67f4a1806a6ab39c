package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	// Version is the semantic version reported by `wsmcp version` and to MCP clients.
	Version = "0.3.0"

	// Name is the server implementation name sent in the initialize response.
	Name = "wsmcp"
)

// Overridden at link time with -ldflags "-X".
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

type buildInfo struct {
	commit string
	dirty  bool
	id     string
}

var (
	loaded     buildInfo
	loadedOnce sync.Once
)

func load() buildInfo {
	loadedOnce.Do(func() {
		loaded = readBuildInfo(GitCommit)
	})
	return loaded
}

// readBuildInfo falls back to the VCS stamp embedded by the toolchain when
// the commit was not injected at link time.
func readBuildInfo(commit string) buildInfo {
	bi := buildInfo{commit: commit}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		bi.id = fmt.Sprintf("%016x", xxhash.Sum64String(Version+"|"+commit))
		return bi
	}

	d := xxhash.New()
	_, _ = d.WriteString(info.GoVersion)
	_, _ = d.WriteString(info.Main.Path)
	_, _ = d.WriteString(info.Main.Version)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if bi.commit == "unknown" && s.Value != "" {
				bi.commit = s.Value
			}
		case "vcs.modified":
			bi.dirty = s.Value == "true"
		default:
			continue
		}
		_, _ = d.WriteString(s.Key + "=" + s.Value)
	}
	bi.id = fmt.Sprintf("%016x", d.Sum64())
	return bi
}

// Commit is the source revision the binary was built from, or "unknown".
func Commit() string {
	return load().commit
}

// BuildID fingerprints the binary from its toolchain, module and VCS stamp.
func BuildID() string {
	return load().id
}

// FullInfo is the one-line description printed by `wsmcp version`.
func FullInfo() string {
	bi := load()
	commit := bi.commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if bi.dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s %s (commit %s, built %s, id %s)", Name, Version, commit, BuildDate, bi.id)
}
