package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenevault/scenevault/internal/models"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator([]Spec{
		{Format: models.CustomFormat{ID: 1, Name: "Remux"}, Pattern: `\bremux\b`, Score: 60},
		{Format: models.CustomFormat{ID: 2, Name: "x265"}, Pattern: `x265|hevc`, Score: 10},
	})
	require.NoError(t, err)
	return c
}

func TestParseCustomFormatsMatchesSceneName(t *testing.T) {
	c := testCalculator(t)
	file := &models.FileRecord{SceneName: "Example.Movie.2020.2160p.Remux.HEVC-GRP"}

	matched := c.ParseCustomFormats(nil, file)
	require.Len(t, matched, 2)
	assert.Equal(t, "Remux", matched[0].Name)
	assert.Equal(t, "x265", matched[1].Name)
}

func TestParseCustomFormatsFallsBackToPath(t *testing.T) {
	c := testCalculator(t)
	file := &models.FileRecord{OriginalPath: "/downloads/example.x265.mkv"}

	matched := c.ParseCustomFormats(nil, file)
	require.Len(t, matched, 1)
	assert.Equal(t, "x265", matched[0].Name)
}

func TestParseCustomFormatsNilFile(t *testing.T) {
	assert.Nil(t, testCalculator(t).ParseCustomFormats(nil, nil))
}

func TestScoreSumsMatches(t *testing.T) {
	c := testCalculator(t)
	score := c.Score([]models.CustomFormat{{ID: 1}, {ID: 2}})
	assert.Equal(t, 70, score)
}

func TestScoreUnknownFormatCountsZero(t *testing.T) {
	c := testCalculator(t)
	assert.Equal(t, 0, c.Score([]models.CustomFormat{{ID: 99}}))
}

func TestNewCalculatorRejectsBadPattern(t *testing.T) {
	_, err := NewCalculator([]Spec{{Pattern: `(`}})
	assert.Error(t, err)
}
