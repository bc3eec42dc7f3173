// Package pathutil centralizes host-aware path comparison. Windows paths
// compare case-insensitively; everything else is case-sensitive.
package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Normalize cleans a path and folds case on case-insensitive hosts so it
// can be used as a comparison or map key.
func Normalize(path string) string {
	p := filepath.Clean(path)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// Equal reports whether two paths refer to the same name on this host.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// HasPrefix reports whether path sits under prefix, host-aware.
func HasPrefix(path, prefix string) bool {
	return strings.HasPrefix(Normalize(path), Normalize(prefix))
}
