package decision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scenevault/scenevault/internal/parser"
)

// ErrNotApplicable signals that a specification does not apply to this
// candidate's item type; the engine skips it without recording anything.
var ErrNotApplicable = errors.New("specification not applicable")

// RejectionError carries the user-facing reason a specification refused a
// candidate. Any other error from Evaluate is treated as a specification
// failure and converted into a rejection naming the specification.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// Reject builds a RejectionError.
func Reject(format string, args ...interface{}) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// Specification is one pluggable accept/reject rule. Evaluate returns nil
// to accept.
type Specification interface {
	Name() string
	Evaluate(c *Candidate) error
}

// DefaultSpecifications returns the standard ordered chain.
func DefaultSpecifications() []Specification {
	return []Specification{
		unpackingSpecification{},
		sampleSpecification{},
		upgradeSpecification{},
		matchesGrabSpecification{},
	}
}

// ──────────────────── Concrete Specifications ────────────────────

// unpackingSpecification refuses files still being extracted by a download
// client.
type unpackingSpecification struct{}

func (unpackingSpecification) Name() string { return "unpacking" }

func (unpackingSpecification) Evaluate(c *Candidate) error {
	lower := strings.ToLower(c.Path)
	if strings.Contains(lower, "_unpack") || strings.Contains(lower, "_failed") {
		return Reject("file is in an unpacking or failed download folder")
	}
	return nil
}

// sampleSpecification refuses sample clips: either tagged in the name or
// implausibly small for a feature file.
type sampleSpecification struct{}

// sampleMaxSize is the size ceiling below which a "sample"-tagged file is
// definitely not library content.
const sampleMaxSize = 70 * 1024 * 1024

func (sampleSpecification) Name() string { return "sample" }

func (s sampleSpecification) Evaluate(c *Candidate) error {
	tagged := c.ParsedInfo != nil && c.ParsedInfo.IsSample
	if tagged && c.Size > 0 && c.Size < sampleMaxSize {
		return Reject("file appears to be a sample (%d bytes)", c.Size)
	}
	return nil
}

// upgradeSpecification refuses files that are a strict quality downgrade
// from the item's current file. Unmapped candidates have no item to compare
// against, so the rule does not apply.
type upgradeSpecification struct{}

func (upgradeSpecification) Name() string { return "upgrade" }

func (upgradeSpecification) Evaluate(c *Candidate) error {
	if c.Item == nil || c.Item.File == nil {
		return ErrNotApplicable
	}
	existing := c.Item.File.Quality
	if c.Quality.Definition.Weight < existing.Definition.Weight {
		return Reject("quality %s is not an upgrade over existing %s",
			c.Quality.Definition.Title, existing.Definition.Title)
	}
	if c.Quality.Definition.Weight == existing.Definition.Weight &&
		c.Quality.Revision.Version <= existing.Revision.Version && c.ExistingFile {
		return Reject("file is already imported at %s", existing.Definition.Title)
	}
	return nil
}

// matchesGrabSpecification cross-checks the download client context: when
// the grabbed release parses to a different item than the one targeted, the
// import is refused rather than silently mis-filed.
type matchesGrabSpecification struct{}

func (matchesGrabSpecification) Name() string { return "matchesGrab" }

func (matchesGrabSpecification) Evaluate(c *Candidate) error {
	if c.DownloadContext == nil || c.DownloadContext.Title == "" || c.Item == nil {
		return ErrNotApplicable
	}
	grabbed := parser.Parse(c.DownloadContext.Title)
	if grabbed == nil || grabbed.CleanTitle == "" {
		return nil
	}
	itemClean := parser.CleanTitle(c.Item.Title)
	if itemClean != "" && grabbed.CleanTitle != itemClean {
		return Reject("grabbed release %q does not match item %q",
			c.DownloadContext.Title, c.Item.Title)
	}
	return nil
}
