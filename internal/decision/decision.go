// Package decision evaluates whether candidate files belong in the library.
// Candidates flow through metadata augmentation, custom-format scoring and
// an ordered chain of rejection specifications; a candidate with no
// rejections is accepted.
package decision

import (
	"path/filepath"
	"strings"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
)

// DownloadContext carries what the download client knew about a grabbed
// release, when the candidate arrived through one.
type DownloadContext struct {
	Title        string
	DownloadID   string
	OutputPath   string
	Quality      *models.Quality
	ReleaseGroup string
}

// Candidate is the transient unit of work for one file. It is created per
// file and discarded once a Decision exists.
type Candidate struct {
	Path            string
	Size            int64
	Item            *models.LibraryItem
	ParsedInfo      *parser.ParsedInfo
	Quality         models.Quality
	MediaInfo       *models.MediaInfo
	CustomFormats   []models.CustomFormat
	FormatScore     int
	ExistingFile    bool
	SceneSource     bool
	OtherFiles      bool
	DownloadContext *DownloadContext
}

// SceneName returns the release identity of the candidate, falling back to
// the extension-stripped base name when parsing produced nothing.
func (c *Candidate) SceneName() string {
	if c.ParsedInfo != nil && c.ParsedInfo.SceneName != "" {
		return c.ParsedInfo.SceneName
	}
	base := filepath.Base(c.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Rejection is one reason a specification refused the candidate.
type Rejection struct {
	Specification string `json:"specification"`
	Reason        string `json:"reason"`
}

// Decision pairs a candidate with every rejection it collected. All reasons
// are kept, not just the first, so the operator can see the full picture.
type Decision struct {
	Candidate  *Candidate  `json:"candidate"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Approved reports whether the candidate passed every specification.
func (d *Decision) Approved() bool { return len(d.Rejections) == 0 }

func (d *Decision) reject(spec, reason string) {
	d.Rejections = append(d.Rejections, Rejection{Specification: spec, Reason: reason})
}
