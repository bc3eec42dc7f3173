package naming

import (
	"regexp"
	"strings"

	"github.com/scenevault/scenevault/internal/models"
)

// badCharacters maps onto benign substitutes pairwise when illegal-character
// replacement is enabled; with replacement off every entry is deleted.
// Colons are handled separately by the colon policy.
var badCharacters = []string{"\\", "/", "<", ">", "?", "*", "|", "\""}
var goodCharacters = []string{"+", "+", "", "", "!", "-", "", ""}

// CleanFileName applies the colon policy and the illegal-character table to
// a single name segment. Path separators are always removed, whatever the
// policy, so a cleaned value can never span directories.
func CleanFileName(name string, cfg models.NamingConfig) string {
	name = replaceColons(name, cfg.ColonReplacement)
	for i, bad := range badCharacters {
		good := ""
		if cfg.ReplaceIllegalCharacters {
			good = goodCharacters[i]
		}
		name = strings.ReplaceAll(name, bad, good)
	}
	return strings.TrimSpace(name)
}

func replaceColons(name string, mode models.ColonReplacement) string {
	switch mode {
	case models.ColonDash:
		return strings.ReplaceAll(name, ":", "-")
	case models.ColonSpaceDash:
		return strings.ReplaceAll(name, ":", " -")
	case models.ColonSpaceDashSpace:
		return strings.ReplaceAll(name, ":", " - ")
	case models.ColonSmart:
		name = strings.ReplaceAll(name, ": ", " - ")
		return strings.ReplaceAll(name, ":", "-")
	default: // ColonDelete
		return strings.ReplaceAll(name, ":", "")
	}
}

// ──────────────────── Segment Post-Processing ────────────────────

var duplicateSpacesRx = regexp.MustCompile(` {2,}`)
var repeatedPunctRx = regexp.MustCompile(`([-._])[-._]+`)
var trailingPunctRx = regexp.MustCompile(`[-._ ]+$`)
var leadingPunctRx = regexp.MustCompile(`^[-._ ]+`)

// Windows reserved device names are rewritten so the segment stays usable
// on every host filesystem.
var reservedNamesRx = regexp.MustCompile(`(?i)^(CON|PRN|AUX|NUL|COM\d|LPT\d)(\.|$)`)

// postProcessSegment normalizes one rendered segment: separator runs are
// collapsed, edges trimmed, the ellipsis marker expanded, and reserved
// device names defused.
func postProcessSegment(segment string) string {
	segment = duplicateSpacesRx.ReplaceAllString(segment, " ")
	segment = repeatedPunctRx.ReplaceAllString(segment, "$1")
	segment = trailingPunctRx.ReplaceAllString(segment, "")
	segment = leadingPunctRx.ReplaceAllString(segment, "")
	segment = strings.ReplaceAll(segment, string(ellipsis), "...")
	segment = reservedNamesRx.ReplaceAllString(segment, "${1}_${2}")
	return segment
}
