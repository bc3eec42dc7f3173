package scanner

import (
	"path/filepath"
	"strings"
)

// Extension allow-list for scannable video files.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".wmv": true, ".flv": true, ".webm": true,
	".ts": true, ".m2ts": true, ".mpg": true, ".mpeg": true,
}

// Folders that never hold importable media, regardless of settings.
var excludedFolders = map[string]bool{
	"@eadir":        true,
	".@__thumb":     true,
	"#recycle":      true,
	"$recycle.bin":  true,
	"system volume information": true,
	".grab":         true,
	"lost+found":    true,
}

// Folders that hold bonus material, skipped only when extras filtering is on.
var extrasFolders = map[string]bool{
	"extras":            true,
	"featurettes":       true,
	"behind the scenes": true,
	"behind-the-scenes": true,
	"trailers":          true,
	"samples":           true,
	"sample":            true,
	"other":             true,
	"interviews":        true,
	"deleted scenes":    true,
}

// Filename suffixes (before the extension) that mark a file as an extra.
var extrasSuffixes = []string{
	"-trailer", "-sample", "-behindthescenes", "-deleted",
	"-featurette", "-interview", "-scene", "-short", "-other",
}

// IsVideoFile reports whether name carries a scannable video extension.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

func isHiddenFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "._")
}

func isExcludedFolder(name string, filterExtras bool) bool {
	lower := strings.ToLower(name)
	if excludedFolders[lower] || strings.HasPrefix(lower, ".") {
		return true
	}
	return filterExtras && extrasFolders[lower]
}

func isExtraFile(name string) bool {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, suffix := range extrasSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
