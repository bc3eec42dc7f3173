// Package formats is the custom-format scoring collaborator. Profile
// scoring internals stay opaque to the import pipeline; callers only see
// matched formats and an aggregate score.
package formats

import (
	"regexp"
	"strings"

	"github.com/scenevault/scenevault/internal/models"
)

// Scorer is the contract the decision engine and naming engine consume.
type Scorer interface {
	ParseCustomFormats(item *models.LibraryItem, file *models.FileRecord) []models.CustomFormat
	Score(formats []models.CustomFormat) int
}

// Spec is one user-defined format: a release-name term plus its score.
type Spec struct {
	Format  models.CustomFormat
	Pattern string
	Score   int
}

// Calculator matches release names against user-defined term patterns.
type Calculator struct {
	specs    []Spec
	patterns []*regexp.Regexp
	scores   map[int64]int
}

func NewCalculator(specs []Spec) (*Calculator, error) {
	c := &Calculator{
		specs:  specs,
		scores: make(map[int64]int, len(specs)),
	}
	for _, s := range specs {
		rx, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, err
		}
		c.patterns = append(c.patterns, rx)
		c.scores[s.Format.ID] = s.Score
	}
	return c, nil
}

// ParseCustomFormats returns every format whose pattern matches the file's
// release identity (scene name, falling back to the original path).
func (c *Calculator) ParseCustomFormats(item *models.LibraryItem, file *models.FileRecord) []models.CustomFormat {
	if file == nil {
		return nil
	}
	name := file.SceneName
	if name == "" {
		name = file.OriginalPath
	}
	name = strings.ToLower(name)

	var matched []models.CustomFormat
	for i, rx := range c.patterns {
		if rx.MatchString(name) {
			matched = append(matched, c.specs[i].Format)
		}
	}
	return matched
}

// Score sums the configured score of each matched format.
func (c *Calculator) Score(formats []models.CustomFormat) int {
	total := 0
	for _, f := range formats {
		total += c.scores[f.ID]
	}
	return total
}
