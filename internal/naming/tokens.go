package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/scenevault/scenevault/internal/models"
)

// tokenRx matches one {Token} occurrence: optional decoration characters
// before and after the token words, and an optional :modifier controlling
// truncation or token-specific filtering.
var tokenRx = regexp.MustCompile(`\{([- ._\[(]*)([A-Za-z0-9]+(?:[- ._][A-Za-z0-9]+)*)(?::([A-Za-z0-9+, _-]+))?([- ._)\]]*)\}`)

var tokenSeparatorRx = regexp.MustCompile(`[- ._]`)

// maxPerformerNames caps performer list tokens.
const maxPerformerNames = 4

// ellipsis is the internal truncation marker, expanded to "..." in the
// segment post-processing pass.
const ellipsis = '…'

type renderContext struct {
	item    *models.LibraryItem
	file    *models.FileRecord
	cfg     models.NamingConfig
	formats []models.CustomFormat

	// titleTrim is the number of characters the length-enforcement loop has
	// asked title tokens to give up on this attempt.
	titleTrim int
}

// resolver produces the raw value for one token. mod is the text after the
// colon, already known not to be numeric (numeric mods are handled as
// truncation by the substitution pass).
type resolver func(ctx *renderContext, mod string) string

// substituteTokens replaces every {...} token in the segment using the
// item-type resolver map. Unknown tokens resolve to the empty string.
func substituteTokens(segment string, ctx *renderContext) string {
	resolvers := buildResolvers(ctx.item.ItemType)

	return tokenRx.ReplaceAllStringFunc(segment, func(match string) string {
		groups := tokenRx.FindStringSubmatch(match)
		prefix, token, mod, suffix := groups[1], groups[2], groups[3], groups[4]

		truncateTo, numericMod := parseTruncation(mod)
		if numericMod {
			mod = ""
		}

		fn, ok := resolvers[normalizeToken(token)]
		if !ok {
			return ""
		}
		value := fn(ctx, mod)
		value = cleanTokenValue(value, ctx.cfg)
		value = applyCase(value, token)
		value = applySeparator(value, token)
		if numericMod {
			value = truncate(value, truncateTo)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return ""
		}
		return prefix + value + suffix
	})
}

// normalizeToken maps raw token text onto its resolver key: lowercase with
// word separators removed, so "{Movie Title}" and "{movie.title}" agree.
func normalizeToken(token string) string {
	return strings.ToLower(tokenSeparatorRx.ReplaceAllString(token, ""))
}

// parseTruncation interprets a purely numeric modifier as a truncation
// length. Negative keeps the tail instead of the head.
func parseTruncation(mod string) (int, bool) {
	if mod == "" {
		return 0, false
	}
	n, err := strconv.Atoi(mod)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// truncate shortens s to n characters plus the ellipsis marker. Positive n
// keeps the head; negative keeps the tail, computed by reversing before and
// after the head truncation.
func truncate(s string, n int) string {
	if n < 0 {
		return reverse(truncate(reverse(s), -n))
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(ellipsis)
	}
	return strings.TrimRight(string(runes[:n-1]), " ") + string(ellipsis)
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// applyCase folds the resolved value when the raw token text is uniformly
// lower or upper case. Mixed-case tokens leave the value as produced.
func applyCase(value, token string) string {
	hasUpper, hasLower := false, false
	for _, r := range token {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	switch {
	case hasLower && !hasUpper:
		return strings.ToLower(value)
	case hasUpper && !hasLower:
		return strings.ToUpper(value)
	default:
		return value
	}
}

// applySeparator rewrites spaces in the value with the word separator used
// inside the raw token text ("{Movie.Title}" renders dot-separated).
func applySeparator(value, token string) string {
	sep := tokenSeparatorRx.FindString(token)
	if sep == "" || sep == " " {
		return value
	}
	return strings.ReplaceAll(value, " ", sep)
}

// cleanTokenValue makes a resolved value filesystem safe: colon policy,
// illegal characters, and embedded path separators (always stripped so a
// single token can never introduce a new path segment).
func cleanTokenValue(value string, cfg models.NamingConfig) string {
	return CleanFileName(value, cfg)
}

// ──────────────────── Resolver Maps ────────────────────

func buildResolvers(t models.ItemType) map[string]resolver {
	m := map[string]resolver{
		// Quality
		"qualityfull":   resolveQualityFull,
		"qualitytitle":  func(ctx *renderContext, _ string) string { return ctx.file.Quality.Definition.Title },
		"qualityproper": resolveQualityProper,
		"qualityreal":   resolveQualityReal,

		// Media info
		"mediainfovideocodec":        func(ctx *renderContext, _ string) string { return mediaInfo(ctx).VideoCodec },
		"mediainfoaudiocodec":        func(ctx *renderContext, _ string) string { return mediaInfo(ctx).AudioCodec },
		"mediainfoaudiochannels":     resolveAudioChannels,
		"mediainfoaudiolanguages":    resolveAudioLanguages,
		"mediainfosubtitlelanguages": resolveSubtitleLanguages,

		// Studio
		"studiotitle":      func(ctx *renderContext, _ string) string { return studio(ctx).Title },
		"studiocleantitle": func(ctx *renderContext, _ string) string { return cleanTitleToken(studio(ctx).Title) },
		"studioslug":       func(ctx *renderContext, _ string) string { return studio(ctx).Slug },
		"studionetwork":    resolveStudioNetwork,

		// Ids and release metadata
		"foreignid":        func(ctx *renderContext, _ string) string { return ctx.item.ForeignID },
		"scenecode":        func(ctx *renderContext, _ string) string { return ctx.item.Code },
		"editiontags":      func(ctx *renderContext, _ string) string { return ctx.file.Edition },
		"releasegroup":     resolveReleaseGroup,
		"originaltitle":    func(ctx *renderContext, _ string) string { return ctx.file.SceneName },
		"originalfilename": resolveOriginalFilename,

		// Custom formats
		"customformats": resolveCustomFormats,
		"customformat":  resolveCustomFormat,

		// Release timing (shared between types)
		"releaseyear": resolveReleaseYear,
		"releasedate": resolveReleaseDate,
	}

	if t == models.ItemTypeMovie {
		m["movietitle"] = resolveTitle
		m["moviecleantitle"] = resolveCleanTitle
		m["movietitlethe"] = resolveTitleThe
		m["movietitlefirstcharacter"] = resolveTitleFirstCharacter
	} else {
		m["scenetitle"] = resolveTitle
		m["scenecleantitle"] = resolveCleanTitle
		m["performers"] = performerResolver(allGenders, false, false)
		m["performersfemale"] = performerResolver([]models.Gender{models.GenderFemale}, false, false)
		m["performersmale"] = performerResolver([]models.Gender{models.GenderMale}, false, false)
		m["performersalias"] = performerResolver(allGenders, true, false)
		m["performersclean"] = performerResolver(allGenders, false, true)
	}
	return m
}

var allGenders = []models.Gender{models.GenderFemale, models.GenderMale, models.GenderOther}

// ──────────────────── Title Tokens ────────────────────

func resolveTitle(ctx *renderContext, _ string) string {
	return trimTitle(ctx.item.Title, ctx.titleTrim)
}

func resolveCleanTitle(ctx *renderContext, _ string) string {
	return trimTitle(cleanTitleToken(ctx.item.Title), ctx.titleTrim)
}

func resolveTitleThe(ctx *renderContext, _ string) string {
	return trimTitle(titleThe(ctx.item.Title), ctx.titleTrim)
}

func resolveTitleFirstCharacter(ctx *renderContext, _ string) string {
	title := cleanTitleToken(titleThe(ctx.item.Title))
	for _, r := range title {
		switch {
		case unicode.IsLetter(r):
			return strings.ToUpper(string(r))
		case unicode.IsDigit(r):
			return "0-9"
		}
	}
	return "_"
}

// trimTitle shortens a title by the requested number of trailing
// characters, marking the cut with the ellipsis rune.
func trimTitle(title string, trim int) string {
	if trim <= 0 {
		return title
	}
	runes := []rune(title)
	keep := len(runes) - trim
	if keep < 1 {
		keep = 1
	}
	if keep >= len(runes) {
		return title
	}
	return strings.TrimRight(string(runes[:keep]), " ") + string(ellipsis)
}

// cleanTitleToken strips punctuation from a title while keeping case:
// ampersands become "and", everything outside [A-Za-z0-9 -] is dropped.
func cleanTitleToken(title string) string {
	t := strings.ReplaceAll(title, "&", "and")
	var b strings.Builder
	for _, r := range t {
		if r == ' ' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// titleThe moves a leading article to the end: "The Fall" → "Fall, The".
func titleThe(title string) string {
	for _, article := range []string{"The ", "A ", "An "} {
		if strings.HasPrefix(title, article) {
			return strings.TrimSpace(strings.TrimPrefix(title, article)) + ", " + strings.TrimSpace(article)
		}
	}
	return title
}

// ──────────────────── Performer Tokens ────────────────────

// performerResolver builds a resolver over the item's credits, filtered by
// gender, sorted females first then by name, capped at maxPerformerNames.
// alias variants substitute the character name when the credit has one;
// clean variants strip punctuation from each name.
func performerResolver(genders []models.Gender, alias, clean bool) resolver {
	allowed := make(map[models.Gender]bool, len(genders))
	for _, g := range genders {
		allowed[g] = true
	}
	return func(ctx *renderContext, _ string) string {
		credits := make([]models.Credit, 0, len(ctx.item.Credits))
		for _, c := range ctx.item.Credits {
			if allowed[c.Performer.Gender] {
				credits = append(credits, c)
			}
		}
		sort.SliceStable(credits, func(i, j int) bool {
			fi := credits[i].Performer.Gender == models.GenderFemale
			fj := credits[j].Performer.Gender == models.GenderFemale
			if fi != fj {
				return fi
			}
			return credits[i].Performer.Name < credits[j].Performer.Name
		})
		if len(credits) > maxPerformerNames {
			credits = credits[:maxPerformerNames]
		}
		names := make([]string, 0, len(credits))
		for _, c := range credits {
			name := c.Performer.Name
			if alias && c.Character != nil && *c.Character != "" {
				name = *c.Character
			}
			if clean {
				name = cleanTitleToken(name)
			}
			names = append(names, name)
		}
		return strings.Join(names, " ")
	}
}

// ──────────────────── Quality Tokens ────────────────────

// resolveQualityFull concatenates the definition title with the Proper and
// Real markers. Empty markers leave doubled spaces behind; the shared
// separator-collapsing pass in postProcessSegment normalizes them.
func resolveQualityFull(ctx *renderContext, _ string) string {
	q := ctx.file.Quality
	return q.Definition.Title + " " + revisionWord(q.Revision, "Proper") + " " + revisionWordReal(q.Revision)
}

func resolveQualityProper(ctx *renderContext, _ string) string {
	return revisionWord(ctx.file.Quality.Revision, "Proper")
}

func resolveQualityReal(ctx *renderContext, _ string) string {
	return revisionWordReal(ctx.file.Quality.Revision)
}

func revisionWord(r models.Revision, word string) string {
	if r.IsProper() {
		return word
	}
	return ""
}

func revisionWordReal(r models.Revision) string {
	if r.IsReal() {
		return "REAL"
	}
	return ""
}

// ──────────────────── Media Info Tokens ────────────────────

var emptyMediaInfo = models.MediaInfo{}

func mediaInfo(ctx *renderContext) *models.MediaInfo {
	if ctx.file.MediaInfo == nil {
		return &emptyMediaInfo
	}
	return ctx.file.MediaInfo
}

func resolveAudioChannels(ctx *renderContext, _ string) string {
	ch := mediaInfo(ctx).AudioChannels
	if ch == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", ch)
}

func resolveAudioLanguages(ctx *renderContext, mod string) string {
	return joinLanguages(mediaInfo(ctx).AudioLanguages, mod)
}

func resolveSubtitleLanguages(ctx *renderContext, mod string) string {
	return joinLanguages(mediaInfo(ctx).SubtitleLanguages, mod)
}

// joinLanguages renders a language list subject to an allow ("EN+DE") or
// deny ("-EN") modifier, joined with "+".
func joinLanguages(langs []string, mod string) string {
	if len(langs) == 0 {
		return ""
	}
	deny := strings.HasPrefix(mod, "-")
	filter := map[string]bool{}
	if mod != "" {
		for _, l := range strings.Split(strings.TrimPrefix(mod, "-"), "+") {
			filter[strings.ToUpper(strings.TrimSpace(l))] = true
		}
	}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		u := strings.ToUpper(l)
		if mod != "" {
			if deny && filter[u] {
				continue
			}
			if !deny && !filter[u] {
				continue
			}
		}
		out = append(out, u)
	}
	return strings.Join(out, "+")
}

// ──────────────────── Studio & Release Tokens ────────────────────

var emptyStudio = models.Studio{}

func studio(ctx *renderContext) *models.Studio {
	if ctx.item.Studio == nil {
		return &emptyStudio
	}
	return ctx.item.Studio
}

func resolveStudioNetwork(ctx *renderContext, _ string) string {
	s := studio(ctx)
	if s.Network != nil {
		return *s.Network
	}
	return ""
}

func resolveReleaseGroup(ctx *renderContext, _ string) string {
	if ctx.file.ReleaseGroup != "" {
		return ctx.file.ReleaseGroup
	}
	return ctx.cfg.ReleaseGroupFallback
}

func resolveOriginalFilename(ctx *renderContext, _ string) string {
	base := filepath.Base(ctx.file.OriginalPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func resolveReleaseYear(ctx *renderContext, _ string) string {
	year := ctx.item.Year
	if year == 0 && ctx.item.ReleaseDate != nil {
		year = ctx.item.ReleaseDate.Year()
	}
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func resolveReleaseDate(ctx *renderContext, _ string) string {
	if ctx.item.ReleaseDate == nil {
		return ""
	}
	return ctx.item.ReleaseDate.Format("2006-01-02")
}

// ──────────────────── Custom Format Tokens ────────────────────

func resolveCustomFormats(ctx *renderContext, _ string) string {
	names := make([]string, 0, len(ctx.formats))
	for _, f := range ctx.formats {
		names = append(names, f.Name)
	}
	return strings.Join(names, " ")
}

// resolveCustomFormat emits the named format only when it matched.
func resolveCustomFormat(ctx *renderContext, mod string) string {
	for _, f := range ctx.formats {
		if strings.EqualFold(f.Name, mod) {
			return f.Name
		}
	}
	return ""
}
