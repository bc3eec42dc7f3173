// Package naming renders library-item metadata into canonical file and
// folder names via a token pattern language. Rendering is pure: every call
// receives an immutable NamingConfig snapshot and shares no state.
package naming

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/scenevault/scenevault/internal/models"
)

// ErrPatternEmpty is returned when a naming format resolves to nothing.
var ErrPatternEmpty = errors.New("naming pattern cannot be empty")

// FormatScorer supplies custom-format matches when the caller did not
// compute them already.
type FormatScorer interface {
	ParseCustomFormats(item *models.LibraryItem, file *models.FileRecord) []models.CustomFormat
}

// Builder binds a format scorer so callers that don't carry custom formats
// of their own still get {Custom Formats} tokens resolved.
type Builder struct {
	scorer FormatScorer
}

func NewBuilder(scorer FormatScorer) *Builder {
	return &Builder{scorer: scorer}
}

// FileName renders the standard file name for the item's type, computing
// custom formats through the bound scorer.
func (b *Builder) FileName(item *models.LibraryItem, file *models.FileRecord, cfg models.NamingConfig) (string, error) {
	pattern := cfg.StandardSceneFormat
	if item.ItemType == models.ItemTypeMovie {
		pattern = cfg.StandardMovieFormat
	}
	var formats []models.CustomFormat
	if b.scorer != nil {
		formats = b.scorer.ParseCustomFormats(item, file)
	}
	return BuildFileName(item, file, pattern, cfg, formats)
}

// Folder renders the standard folder path for the item's type.
func (b *Builder) Folder(item *models.LibraryItem, cfg models.NamingConfig) (string, error) {
	pattern := cfg.SceneFolderFormat
	if item.ItemType == models.ItemTypeMovie {
		pattern = cfg.MovieFolderFormat
	}
	return BuildFolder(item, pattern, cfg)
}

// maxTitleTrim bounds the shorten-and-retry loop during length enforcement.
const maxTitleTrim = 200

var segmentSplitRx = regexp.MustCompile(`[/\\]`)

// BuildFileName renders the file name for an item using the given pattern.
// When renaming is disabled for the item's type the cleaned original scene
// name (or original file name) is returned unchanged.
func BuildFileName(item *models.LibraryItem, file *models.FileRecord, pattern string, cfg models.NamingConfig, customFormats []models.CustomFormat) (string, error) {
	if !renameEnabled(item.ItemType, cfg) {
		return passthroughName(file, cfg), nil
	}
	return render(item, file, pattern, cfg, customFormats, true)
}

// BuildSampleFileName renders a preview name with a synthesized file record,
// ignoring the rename toggles. Used for settings previews.
func BuildSampleFileName(item *models.LibraryItem, pattern string, cfg models.NamingConfig) (string, error) {
	return render(item, placeholderFile(), pattern, cfg, nil, true)
}

// BuildFolder renders the item's folder path for the given pattern.
func BuildFolder(item *models.LibraryItem, pattern string, cfg models.NamingConfig) (string, error) {
	return render(item, placeholderFile(), pattern, cfg, nil, false)
}

func render(item *models.LibraryItem, file *models.FileRecord, pattern string, cfg models.NamingConfig, customFormats []models.CustomFormat, lastIsFileName bool) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", ErrPatternEmpty
	}
	if file == nil {
		file = placeholderFile()
	}

	ctx := &renderContext{
		item:    item,
		file:    file,
		cfg:     cfg,
		formats: customFormats,
	}

	segments := segmentSplitRx.Split(pattern, -1)
	rendered := make([]string, 0, len(segments))
	for i, seg := range segments {
		maxLen := cfg.MaxFolderNameLength
		if lastIsFileName && i == len(segments)-1 {
			maxLen = cfg.MaxFileNameLength
		}
		out := renderSegment(seg, ctx, maxLen)
		if out != "" {
			rendered = append(rendered, out)
		}
	}
	return filepath.Join(rendered...), nil
}

// renderSegment substitutes tokens and enforces the segment length limit by
// re-rendering title tokens with a growing trim amount. The trim value is
// threaded through the context per attempt, so concurrent renders never
// observe each other.
func renderSegment(segment string, ctx *renderContext, maxLen int) string {
	for trim := 0; ; trim++ {
		ctx.titleTrim = trim
		out := substituteTokens(segment, ctx)
		out = postProcessSegment(out)
		if maxLen <= 0 || utf8.RuneCountInString(out) <= maxLen || trim >= maxTitleTrim {
			return out
		}
	}
}

func renameEnabled(t models.ItemType, cfg models.NamingConfig) bool {
	if t == models.ItemTypeMovie {
		return cfg.RenameMovies
	}
	return cfg.RenameScenes
}

// passthroughName returns the cleaned original identity of a file when
// renaming is off.
func passthroughName(file *models.FileRecord, cfg models.NamingConfig) string {
	if file == nil {
		return ""
	}
	name := file.SceneName
	if name == "" {
		base := filepath.Base(file.OriginalPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return CleanFileName(name, cfg)
}

func placeholderFile() *models.FileRecord {
	return &models.FileRecord{
		Quality:      models.Quality{Revision: models.Revision{Version: 1}},
		RelativePath: "",
		OriginalPath: "",
	}
}
