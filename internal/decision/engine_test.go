package decision

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
	"github.com/scenevault/scenevault/internal/qualities"
)

// ──────────────────── Fakes ────────────────────

type fakeSpec struct {
	name string
	fn   func(c *Candidate) error
}

func (f fakeSpec) Name() string               { return f.name }
func (f fakeSpec) Evaluate(c *Candidate) error { return f.fn(c) }

type fakeIdentifier struct {
	fn func(path string, parsed *parser.ParsedInfo) (*models.LibraryItem, error)
}

func (f fakeIdentifier) Identify(_ context.Context, path string, parsed *parser.ParsedInfo) (*models.LibraryItem, error) {
	return f.fn(path, parsed)
}

type fakeFileIndex struct {
	files []*models.FileRecord
}

func (f fakeFileIndex) FindByParent(context.Context, int64) ([]*models.FileRecord, error) {
	return f.files, nil
}

type fakeAugmenter struct {
	name   string
	result *AugmentResult
	err    error
}

func (f fakeAugmenter) Name() string { return f.name }
func (f fakeAugmenter) Augment(*Candidate, *DownloadContext) (*AugmentResult, error) {
	return f.result, f.err
}

func boundItem() *models.LibraryItem {
	return &models.LibraryItem{ID: 7, Title: "Example", ItemType: models.ItemTypeMovie, Path: "/library/Example (2020)"}
}

// ──────────────────── Decision Semantics ────────────────────

func TestEvaluate_NoRejectionsIsApproved(t *testing.T) {
	e := NewEngine(nil, DefaultAugmenters(), nil, nil, nil)
	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/Example.2020.1080p.WEB-GRP.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	require.Len(t, decs, 1)
	assert.True(t, decs[0].Approved())
}

func TestEvaluate_PanickingSpecYieldsOneRejection(t *testing.T) {
	boom := fakeSpec{name: "boom", fn: func(*Candidate) error { panic("kaput") }}
	ok := fakeSpec{name: "ok", fn: func(*Candidate) error { return nil }}
	e := NewEngine([]Specification{boom, ok}, nil, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	require.Len(t, decs, 1)
	require.Len(t, decs[0].Rejections, 1)
	assert.Equal(t, "boom", decs[0].Rejections[0].Specification)
	assert.Contains(t, decs[0].Rejections[0].Reason, "kaput")
}

func TestEvaluate_SpecErrorBecomesRejection(t *testing.T) {
	broken := fakeSpec{name: "broken", fn: func(*Candidate) error { return errors.New("db timeout") }}
	e := NewEngine([]Specification{broken}, nil, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	require.Len(t, decs[0].Rejections, 1)
	assert.Equal(t, "broken", decs[0].Rejections[0].Specification)
}

func TestEvaluate_NotApplicableIsSilentPass(t *testing.T) {
	na := fakeSpec{name: "na", fn: func(*Candidate) error { return ErrNotApplicable }}
	e := NewEngine([]Specification{na}, nil, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	assert.True(t, decs[0].Approved())
}

func TestEvaluate_AllRejectionsCollected(t *testing.T) {
	r1 := fakeSpec{name: "first", fn: func(*Candidate) error { return Reject("reason one") }}
	r2 := fakeSpec{name: "second", fn: func(*Candidate) error { return Reject("reason two") }}
	e := NewEngine([]Specification{r1, r2}, nil, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	require.Len(t, decs[0].Rejections, 2)
	assert.Equal(t, "reason one", decs[0].Rejections[0].Reason)
	assert.Equal(t, "reason two", decs[0].Rejections[1].Reason)
}

// ──────────────────── Augmentation Merge ────────────────────

func TestAugmentMerge_HigherConfidenceWins(t *testing.T) {
	low := fakeAugmenter{name: "low", result: &AugmentResult{
		Resolution: 720, ResolutionConfidence: ConfidenceFallback,
		Source: models.SourceWebDL, SourceConfidence: ConfidenceFallback,
	}}
	high := fakeAugmenter{name: "high", result: &AugmentResult{
		Resolution: 1080, ResolutionConfidence: ConfidenceMediaInfo,
	}}
	e := NewEngine(nil, []Augmenter{low, high}, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	q := decs[0].Candidate.Quality
	assert.Equal(t, 1080, q.Definition.Resolution)
	assert.Equal(t, models.SourceWebDL, q.Definition.Source)
}

func TestAugmentMerge_TieGoesToEarlierAugmenter(t *testing.T) {
	first := fakeAugmenter{name: "first", result: &AugmentResult{
		Resolution: 1080, ResolutionConfidence: ConfidenceFileName,
	}}
	second := fakeAugmenter{name: "second", result: &AugmentResult{
		Resolution: 720, ResolutionConfidence: ConfidenceFileName,
	}}
	e := NewEngine(nil, []Augmenter{first, second}, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	assert.Equal(t, 1080, decs[0].Candidate.Quality.Definition.Resolution)
}

func TestAugmentError_RejectsOnlyThatFile(t *testing.T) {
	bad := fakeAugmenter{name: "flaky", err: errors.New("probe failed")}
	e := NewEngine(nil, []Augmenter{bad}, nil, nil, nil)

	decs, err := e.GetImportDecisions(context.Background(), []string{"/downloads/a.mkv", "/downloads/b.mkv"}, boundItem(), Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	require.Len(t, decs, 2)
	for _, d := range decs {
		require.Len(t, d.Rejections, 1)
		assert.Equal(t, "flaky", d.Rejections[0].Specification)
	}
}

// ──────────────────── Existing-File Filter ────────────────────

func TestExistingFileFilter(t *testing.T) {
	item := boundItem()
	index := fakeFileIndex{files: []*models.FileRecord{{ItemID: item.ID, RelativePath: "Example (2020).mkv"}}}
	e := NewEngine(nil, nil, nil, nil, index)

	known := filepath.Join(item.Path, "Example (2020).mkv")
	fresh := filepath.Join(item.Path, "Example (2020) Proper.mkv")

	decs, err := e.GetImportDecisions(context.Background(), []string{known, fresh}, item, Options{})
	require.NoError(t, err)
	require.Len(t, decs, 1)
	assert.Equal(t, fresh, decs[0].Candidate.Path)

	decs, err = e.GetImportDecisions(context.Background(), []string{known}, item, Options{DisableExistingFileFilter: true})
	require.NoError(t, err)
	assert.Len(t, decs, 1)
}

// ──────────────────── Scratch Mode ────────────────────

func TestScanDecisions_UnmappedFile(t *testing.T) {
	ident := fakeIdentifier{fn: func(string, *parser.ParsedInfo) (*models.LibraryItem, error) { return nil, nil }}
	reject := fakeSpec{name: "always", fn: func(*Candidate) error { return Reject("no") }}
	e := NewEngine([]Specification{reject}, DefaultAugmenters(), nil, ident, nil)

	out, err := e.GetImportDecisionsForScan(context.Background(), []string{"/media/Unknown.Studio.24.01.02.Someone.1080p.mkv"}, Options{})
	require.NoError(t, err)
	require.Len(t, out.Unmapped, 1)
	assert.Empty(t, out.Decisions)

	rec := out.Unmapped[0]
	assert.Equal(t, models.UnmappedItemID, rec.ItemID)
	assert.Equal(t, "/media/Unknown.Studio.24.01.02.Someone.1080p.mkv", rec.OriginalPath)
	assert.Equal(t, 1080, rec.Quality.Definition.Resolution)
	assert.False(t, rec.DateAdded.IsZero())
}

func TestScanDecisions_NewItemsDeduplicated(t *testing.T) {
	release := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ident := fakeIdentifier{fn: func(string, *parser.ParsedInfo) (*models.LibraryItem, error) {
		return &models.LibraryItem{ID: 0, Title: "Brand New", ReleaseDate: &release, ItemType: models.ItemTypeScene}, nil
	}}
	e := NewEngine(nil, nil, nil, ident, nil)

	out, err := e.GetImportDecisionsForScan(context.Background(), []string{"/media/a.mkv", "/media/b.mkv"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out.NewItems, 1)
	assert.Empty(t, out.Decisions)
	assert.Empty(t, out.Unmapped)
}

func TestScanDecisions_MatchedItemGetsFullDecision(t *testing.T) {
	item := boundItem()
	ident := fakeIdentifier{fn: func(string, *parser.ParsedInfo) (*models.LibraryItem, error) { return item, nil }}
	e := NewEngine(DefaultSpecifications(), DefaultAugmenters(), nil, ident, nil)

	out, err := e.GetImportDecisionsForScan(context.Background(), []string{"/media/Example.2020.1080p.WEB.mkv"}, Options{})
	require.NoError(t, err)
	require.Len(t, out.Decisions, 1)
	assert.True(t, out.Decisions[0].Approved())
	assert.Same(t, item, out.Decisions[0].Candidate.Item)
}

func TestScanDecisions_IdentifierErrorFallsBackToUnmapped(t *testing.T) {
	ident := fakeIdentifier{fn: func(string, *parser.ParsedInfo) (*models.LibraryItem, error) {
		return nil, errors.New("lookup offline")
	}}
	e := NewEngine(nil, nil, nil, ident, nil)

	out, err := e.GetImportDecisionsForScan(context.Background(), []string{"/media/a.mkv"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out.Unmapped, 1)
}

// ──────────────────── Concrete Specifications ────────────────────

func TestUpgradeSpecification(t *testing.T) {
	item := boundItem()
	item.File = &models.FileRecord{Quality: models.Quality{Definition: qualities.Find(models.SourceBluray, 1080)}}

	c := &Candidate{Item: item, Quality: models.Quality{Definition: qualities.Find(models.SourceWebDL, 720)}}
	err := upgradeSpecification{}.Evaluate(c)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)

	c.Quality = models.Quality{Definition: qualities.Find(models.SourceBluray, 2160)}
	require.NoError(t, upgradeSpecification{}.Evaluate(c))

	c.Item = &models.LibraryItem{}
	assert.ErrorIs(t, upgradeSpecification{}.Evaluate(c), ErrNotApplicable)
}

func TestSampleSpecification(t *testing.T) {
	parsed := parser.Parse("/media/Example.2020.sample.mkv")
	require.NotNil(t, parsed)
	require.True(t, parsed.IsSample)

	c := &Candidate{Path: "/media/Example.2020.sample.mkv", ParsedInfo: parsed, Size: 10 * 1024 * 1024}
	var rej *RejectionError
	require.ErrorAs(t, sampleSpecification{}.Evaluate(c), &rej)

	c.Size = 4 * 1024 * 1024 * 1024
	require.NoError(t, sampleSpecification{}.Evaluate(c))
}

func TestUnpackingSpecification(t *testing.T) {
	c := &Candidate{Path: "/downloads/_UNPACK_Example/file.mkv"}
	var rej *RejectionError
	require.ErrorAs(t, unpackingSpecification{}.Evaluate(c), &rej)

	c.Path = "/downloads/Example/file.mkv"
	require.NoError(t, unpackingSpecification{}.Evaluate(c))
}

func TestSceneNameFallsBackToBaseName(t *testing.T) {
	c := &Candidate{Path: "/downloads/incoming/x264.mkv"}
	assert.Equal(t, "x264", c.SceneName())

	c.ParsedInfo = &parser.ParsedInfo{SceneName: "Example.2020.1080p.WEB-GRP"}
	assert.Equal(t, "Example.2020.1080p.WEB-GRP", c.SceneName())
}
