// Package pathutil converts between the absolute paths used internally and
// the root-relative paths shown to clients.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to one relative to rootDir. Paths
// that are already relative, or lie outside rootDir, are returned unchanged.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.cs", "/home/user/project") → "src/main.cs"
//   - ToRelative("/other/location/file.cs", "/home/user/project") → "/other/location/file.cs"
//   - ToRelative("src/main.cs", "/home/user/project") → "src/main.cs"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// Within reports whether p lies strictly inside root and, if so, returns its
// slash-separated path relative to root. Both paths must already be
// absolute and symlink-free.
func Within(root, p string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
