// Package parser extracts provisional metadata from release and file names.
// It is a pure capability: raw path in, structured guess (or nil) out.
package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/qualities"
)

// ParsedInfo holds everything extracted from a single release name.
type ParsedInfo struct {
	Title          string
	CleanTitle     string
	Year           int
	ReleaseDate    *time.Time
	StudioTitle    string
	PerformerNames []string
	Quality        models.Quality
	Edition        string
	ReleaseGroup   string
	SceneName      string // the cleaned base name, kept for naming fallbacks
	IsSample       bool
}

// ──────────────────── Compiled Patterns ────────────────────

// Year requires delimiters so episode-style digit runs don't match.
var yearRx = regexp.MustCompile(`(?:[\(\[\.\-_,\s])([12]\d{3})(?:[\)\]\.\-_,+\s]|$)`)

// Scene release dates: Studio.24.03.15.Name or Studio - 2024-03-15 - Name.
var sceneDateRx = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{2})`)
var isoDateRx = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// Edition: {edition-XXX} braces in Radarr convention, or bare keywords.
var editionBraceRx = regexp.MustCompile(`(?i)\{(?:edition-)?([^}]+)\}`)
var editionWordRx = regexp.MustCompile(`(?i)[\s._-](director'?s[\s._-]cut|extended|unrated|uncut|remastered|theatrical)[\s._-]?`)

// Release group: trailing -GROUP after the last quality token.
var releaseGroupRx = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\.[a-z0-9]+)?$`)

var resolutionRx = regexp.MustCompile(`(?i)[\s._\-\[(](480|576|720|1080|2160)[pi]`)
var properRx = regexp.MustCompile(`(?i)[\s._-](proper|repack|rerip)[\s._-]?`)
var realRx = regexp.MustCompile(`[\s._-]REAL[\s._-]`)
var sampleRx = regexp.MustCompile(`(?i)(?:^|[\s._-])sample(?:[\s._-]|$)`)

// sourceTokenMap maps a source onto the tokens that identify it. Order in
// sourceOrder matters: bluray tokens beat the bare "web" token etc.
var sourceTokenMap = map[models.Source][]string{
	models.SourceBluray: {"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux", "hddvd"},
	models.SourceWebRip: {"webrip", "web-rip"},
	models.SourceWebDL:  {"webdl", "web-dl", "web"},
	models.SourceDVD:    {"dvd", "dvdrip", "ntsc", "pal"},
	models.SourceTV:     {"hdtv", "pdtv", "sdtv", "tvrip"},
	models.SourceCam:    {"cam", "camrip", "ts", "telesync", "tc", "telecine"},
}

var sourceOrder = []models.Source{
	models.SourceBluray, models.SourceWebRip, models.SourceWebDL,
	models.SourceDVD, models.SourceTV, models.SourceCam,
}

// garbageTokens are stripped from the tail of a name before the title is
// taken. Checked case-insensitively against [\s._-] separated tokens.
var garbageTokens = buildGarbageSet(
	[]string{"x264", "x265", "h264", "h265", "hevc", "avc", "xvid", "divx", "av1", "vp9", "10bit", "8bit"},
	[]string{"aac", "ac3", "dts", "truehd", "atmos", "flac", "mp3", "opus", "eac3", "dd5", "ddp5"},
	[]string{"480p", "576p", "720p", "1080p", "2160p", "4k", "uhd", "hd", "sd"},
	[]string{"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux", "dvdrip", "dvd", "webrip", "web-dl", "webdl", "web", "hdtv", "pdtv", "cam", "ts", "tc"},
	[]string{"proper", "repack", "rerip", "real", "internal", "limited", "remastered", "multi", "subbed", "xxx"},
	[]string{"mkv", "mp4", "avi", "wmv", "mov"},
)

func buildGarbageSet(groups ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, tok := range g {
			set[tok] = true
		}
	}
	return set
}

var splitRx = regexp.MustCompile(`[\s._]+`)
var wordSepRx = regexp.MustCompile(`[._]+`)

// Strict scene pattern: "Studio - YYYY-MM-DD - Title" with performers
// optionally appended after the title ("... - Name One, Name Two").
var sceneStrictRx = regexp.MustCompile(`^(.+?)\s+-\s+(\d{4}-\d{2}-\d{2})\s+-\s+(.+)$`)

// ──────────────────── Parse ────────────────────

// Parse extracts metadata from the final path element. It returns nil only
// when the name carries no usable signal at all.
func Parse(path string) *ParsedInfo {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if strings.TrimSpace(name) == "" {
		return nil
	}

	info := &ParsedInfo{}
	info.IsSample = sampleRx.MatchString(name)

	work := name

	// Edition first so the brace block doesn't pollute the title.
	if m := editionBraceRx.FindStringSubmatch(work); len(m) >= 2 {
		info.Edition = strings.TrimSpace(m[1])
		work = editionBraceRx.ReplaceAllString(work, "")
	} else if m := editionWordRx.FindStringSubmatch(work); len(m) >= 2 {
		info.Edition = normalizeEdition(m[1])
	}

	info.Quality = parseQuality(work)

	if m := releaseGroupRx.FindStringSubmatch(work); len(m) >= 2 && !garbageTokens[strings.ToLower(m[1])] {
		info.ReleaseGroup = m[1]
	}

	// Strict "Studio - Date - Title" form carries the most signal.
	if m := sceneStrictRx.FindStringSubmatch(work); len(m) == 4 {
		if d, err := time.Parse("2006-01-02", m[2]); err == nil {
			info.StudioTitle = strings.TrimSpace(m[1])
			info.ReleaseDate = &d
			info.Year = d.Year()
			title, performers := splitTitlePerformers(m[3])
			info.Title = title
			info.PerformerNames = performers
			finish(info, name)
			return info
		}
	}

	// Scene dot-date form: Studio.YY.MM.DD.Performer.Name.XXX...
	if m := sceneDateRx.FindStringSubmatch(work); len(m) == 4 {
		if d, ok := parseShortDate(m[1], m[2], m[3]); ok {
			loc := sceneDateRx.FindStringIndex(work)
			info.StudioTitle = cleanupWords(work[:loc[0]])
			info.ReleaseDate = &d
			info.Year = d.Year()
			info.Title = cleanupWords(stripGarbage(work[loc[1]:]))
			finish(info, name)
			return info
		}
	}

	if m := isoDateRx.FindStringSubmatch(work); len(m) == 4 {
		if d, err := time.Parse("2006-01-02", m[0]); err == nil {
			info.ReleaseDate = &d
			info.Year = d.Year()
		}
	}

	// Movie form: Title (Year) junk / Title.Year.junk
	if m := yearRx.FindStringSubmatch(work); len(m) >= 2 {
		if y, err := strconv.Atoi(m[1]); err == nil {
			info.Year = y
			loc := yearRx.FindStringIndex(work)
			work = work[:loc[0]]
		}
	} else {
		work = stripGarbage(work)
	}

	info.Title = cleanupWords(work)
	if info.Title == "" && info.Year == 0 && info.ReleaseDate == nil {
		return nil
	}
	finish(info, name)
	return info
}

func finish(info *ParsedInfo, rawName string) {
	info.SceneName = strings.TrimSpace(rawName)
	info.CleanTitle = CleanTitle(info.Title)
}

// CleanTitle lowers a title to its comparison form: "and" for ampersands,
// alphanumerics only, single spaces.
func CleanTitle(title string) string {
	t := strings.ReplaceAll(title, "&", "and")
	var b strings.Builder
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// ──────────────────── Helpers ────────────────────

func parseQuality(name string) models.Quality {
	q := models.Quality{Revision: models.Revision{Version: 1}}

	resolution := 0
	if m := resolutionRx.FindStringSubmatch(name); len(m) >= 2 {
		resolution, _ = strconv.Atoi(m[1])
	}

	source := models.SourceUnknown
	tokens := make(map[string]bool)
	for _, tok := range splitRx.Split(strings.ToLower(name), -1) {
		tokens[strings.Trim(tok, "-[]()")] = true
	}
	for _, src := range sourceOrder {
		for _, tok := range sourceTokenMap[src] {
			if tokens[tok] {
				source = src
				break
			}
		}
		if source != models.SourceUnknown {
			break
		}
	}

	q.Definition = qualities.Find(source, resolution)
	if properRx.MatchString(name) {
		q.Revision.Version = 2
	}
	if realRx.MatchString(name) {
		q.Revision.Real = 1
	}
	return q
}

func parseShortDate(yy, mm, dd string) (time.Time, bool) {
	y, _ := strconv.Atoi(yy)
	m, _ := strconv.Atoi(mm)
	d, _ := strconv.Atoi(dd)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	year := 2000 + y
	if year > time.Now().Year()+1 {
		year -= 100
	}
	return time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

// splitTitlePerformers splits "Title - Name One, Name Two" style tails.
// Only the last dash-separated chunk is considered, and only when every
// comma-separated entry looks like a person name (two-ish capitalized words).
func splitTitlePerformers(s string) (string, []string) {
	parts := strings.Split(s, " - ")
	if len(parts) < 2 {
		return strings.TrimSpace(s), nil
	}
	tail := parts[len(parts)-1]
	var names []string
	for _, entry := range strings.Split(tail, ",") {
		entry = strings.TrimSpace(entry)
		if !looksLikeName(entry) {
			return strings.TrimSpace(s), nil
		}
		names = append(names, entry)
	}
	title := strings.TrimSpace(strings.Join(parts[:len(parts)-1], " - "))
	return title, names
}

func looksLikeName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// stripGarbage drops everything from the first garbage token onward.
func stripGarbage(s string) string {
	tokens := splitRx.Split(s, -1)
	for i, tok := range tokens {
		if garbageTokens[strings.ToLower(strings.Trim(tok, "-[]()"))] {
			return strings.Join(tokens[:i], " ")
		}
	}
	return s
}

// cleanupWords converts dot/underscore word separators back to spaces and
// trims leftover punctuation.
func cleanupWords(s string) string {
	s = wordSepRx.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -_[](),")
	return strings.Join(strings.Fields(s), " ")
}

func normalizeEdition(e string) string {
	e = wordSepRx.ReplaceAllString(e, " ")
	return strings.Join(strings.Fields(e), " ")
}
