package indexing

import (
	"bytes"
	"path/filepath"
	"strings"
)

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".webp": true,
	".zip": true, ".tar": true, ".gz": true, ".7z": true, ".rar": true, ".jar": true, ".nupkg": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true, ".o": true, ".pdb": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true,
	".pdf": true, ".docx": true, ".xlsx": true,
	".db": true, ".sqlite": true, ".pyc": true, ".class": true,
}

// isBinaryPath reports binary formats known by extension.
func isBinaryPath(p string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(p))]
}

// isBinaryContent sniffs the head of a file: any NUL byte or a high share
// of control characters marks it binary.
func isBinaryContent(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	control := 0
	for _, b := range head {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			control++
		}
	}
	return control > len(head)*30/100
}
