package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenevault/scenevault/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseMovieDottedForm(t *testing.T) {
	info := Parse("/downloads/Example.Movie.2020.1080p.BluRay.x264-GRP.mkv")
	require.NotNil(t, info)

	assert.Equal(t, "Example Movie", info.Title)
	assert.Equal(t, "examplemovie", info.CleanTitle)
	assert.Equal(t, 2020, info.Year)
	assert.Equal(t, "GRP", info.ReleaseGroup)
	assert.Equal(t, "Bluray-1080p", info.Quality.Definition.Title)
	assert.Equal(t, "Example.Movie.2020.1080p.BluRay.x264-GRP", info.SceneName)
	assert.False(t, info.IsSample)
}

func TestParseMovieParenthesizedYear(t *testing.T) {
	info := Parse("Example Movie (2020).mkv")
	require.NotNil(t, info)

	assert.Equal(t, "Example Movie", info.Title)
	assert.Equal(t, 2020, info.Year)
	assert.Equal(t, models.SourceUnknown, info.Quality.Definition.Source)
}

func TestParseStrictSceneForm(t *testing.T) {
	info := Parse("Example Films - 2024-01-05 - First Date - Jane Doe, Mary Major.mkv")
	require.NotNil(t, info)

	assert.Equal(t, "Example Films", info.StudioTitle)
	require.NotNil(t, info.ReleaseDate)
	assert.Equal(t, date(2024, time.January, 5), *info.ReleaseDate)
	assert.Equal(t, 2024, info.Year)
	assert.Equal(t, "First Date", info.Title)
	assert.Equal(t, []string{"Jane Doe", "Mary Major"}, info.PerformerNames)
	assert.Empty(t, info.ReleaseGroup)
}

func TestParseStrictScenePerformerTailStaysInTitleWhenNotNames(t *testing.T) {
	info := Parse("Example Films - 2024-01-05 - part two - the return.mkv")
	require.NotNil(t, info)

	assert.Equal(t, "part two - the return", info.Title)
	assert.Empty(t, info.PerformerNames)
}

func TestParseSceneDotDateForm(t *testing.T) {
	info := Parse("ExampleStudio.24.03.15.Jane.Doe.Hot.Scene.XXX.1080p.MP4-GRP.mkv")
	require.NotNil(t, info)

	assert.Equal(t, "ExampleStudio", info.StudioTitle)
	require.NotNil(t, info.ReleaseDate)
	assert.Equal(t, date(2024, time.March, 15), *info.ReleaseDate)
	assert.Equal(t, "Jane Doe Hot Scene", info.Title)
	assert.Equal(t, "GRP", info.ReleaseGroup)
	assert.Equal(t, 1080, info.Quality.Definition.Resolution)
}

func TestParseShortDateCenturyPivot(t *testing.T) {
	info := Parse("OldStudio.99.12.31.Vintage.Name.mkv")
	require.NotNil(t, info)
	require.NotNil(t, info.ReleaseDate)
	assert.Equal(t, date(1999, time.December, 31), *info.ReleaseDate)
}

func TestParseInvalidShortDateIgnored(t *testing.T) {
	// 13th month is not a date; the digits stay part of the name.
	info := Parse("Studio.24.13.45.Name.mkv")
	require.NotNil(t, info)
	assert.Nil(t, info.ReleaseDate)
	assert.Empty(t, info.StudioTitle)
}

func TestParseIsoDateWithoutStrictForm(t *testing.T) {
	info := Parse("Interview 2024-01-05 1080p.mkv")
	require.NotNil(t, info)

	require.NotNil(t, info.ReleaseDate)
	assert.Equal(t, date(2024, time.January, 5), *info.ReleaseDate)
	assert.Equal(t, "Interview", info.Title)
}

func TestParseProperAndReal(t *testing.T) {
	info := Parse("Example.Movie.2020.PROPER.REAL.1080p.WEBRip.x264-GRP.mkv")
	require.NotNil(t, info)

	assert.Equal(t, 2, info.Quality.Revision.Version)
	assert.Equal(t, 1, info.Quality.Revision.Real)
	assert.Equal(t, "WEBRip-1080p", info.Quality.Definition.Title)
}

func TestParseRealIsCaseSensitive(t *testing.T) {
	info := Parse("Example.Movie.2020.real.estate.1080p.WEBRip.mkv")
	require.NotNil(t, info)
	assert.Equal(t, 0, info.Quality.Revision.Real)
}

func TestParseEditionBrace(t *testing.T) {
	info := Parse("Example Movie (2020) {edition-Directors Cut}.mkv")
	require.NotNil(t, info)

	assert.Equal(t, "Directors Cut", info.Edition)
	assert.Equal(t, "Example Movie", info.Title)
	assert.Equal(t, 2020, info.Year)
}

func TestParseEditionKeyword(t *testing.T) {
	info := Parse("Example.Movie.2020.Extended.1080p.WEBRip.mkv")
	require.NotNil(t, info)
	assert.Equal(t, "Extended", info.Edition)
}

func TestParseSampleFlag(t *testing.T) {
	info := Parse("Example.Movie.2020.sample.mkv")
	require.NotNil(t, info)
	assert.True(t, info.IsSample)
}

func TestParseReleaseGroupNeverAGarbageToken(t *testing.T) {
	info := Parse("Example.Movie.2020.1080p-x265.mkv")
	require.NotNil(t, info)
	assert.Empty(t, info.ReleaseGroup)
}

func TestParseNoSignalReturnsNil(t *testing.T) {
	assert.Nil(t, Parse("x264.mkv"))
	assert.Nil(t, Parse("   .mkv"))
}

func TestParseGarbageStrippedWithoutYear(t *testing.T) {
	info := Parse("Some.Release.1080p.WEBRip.x264.mkv")
	require.NotNil(t, info)
	assert.Equal(t, "Some Release", info.Title)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "fastandloose", CleanTitle("Fast & Loose"))
	assert.Equal(t, "examplemovie", CleanTitle("Example: Movie!"))
	assert.Equal(t, "", CleanTitle("---"))
}
