package decision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
	"github.com/scenevault/scenevault/internal/pathutil"
)

// Identifier resolves a parsed guess to a library item. A nil item with a
// nil error means "no confident match"; an item with ID 0 is a new item
// that has not been persisted yet.
type Identifier interface {
	Identify(ctx context.Context, path string, parsed *parser.ParsedInfo) (*models.LibraryItem, error)
}

// FormatScorer is the custom-format collaborator surface the engine needs.
type FormatScorer interface {
	ParseCustomFormats(item *models.LibraryItem, file *models.FileRecord) []models.CustomFormat
	Score(formats []models.CustomFormat) int
}

// FileIndex supplies the already-indexed files for the existing-file filter.
type FileIndex interface {
	FindByParent(ctx context.Context, itemID int64) ([]*models.FileRecord, error)
}

// Options tune a single evaluation batch.
type Options struct {
	// DisableExistingFileFilter keeps already-indexed files in the batch.
	DisableExistingFileFilter bool
	// SceneSource marks candidates that arrived as scene releases.
	SceneSource bool
	// DownloadContext is forwarded to augmenters and specifications.
	DownloadContext *DownloadContext
}

// decisionConcurrency bounds parallel candidate evaluation. Candidates are
// independent; only read-only collaborators are shared.
const decisionConcurrency = 4

// Engine runs the import pipeline over candidate files.
type Engine struct {
	specs      []Specification
	augmenters []Augmenter
	scorer     FormatScorer
	identifier Identifier
	files      FileIndex
}

func NewEngine(specs []Specification, augmenters []Augmenter, scorer FormatScorer, identifier Identifier, files FileIndex) *Engine {
	return &Engine{
		specs:      specs,
		augmenters: augmenters,
		scorer:     scorer,
		identifier: identifier,
		files:      files,
	}
}

// GetImportDecisions evaluates candidate paths against one known item.
func (e *Engine) GetImportDecisions(ctx context.Context, paths []string, item *models.LibraryItem, opts Options) ([]*Decision, error) {
	if !opts.DisableExistingFileFilter {
		var err error
		paths, err = e.filterKnownFiles(ctx, paths, item)
		if err != nil {
			return nil, fmt.Errorf("filter known files: %w", err)
		}
	}

	decisions := make([]*Decision, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decisionConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			decisions[i] = e.evaluate(gctx, path, item, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// ScanDecisions is the scratch-mode output: decisions for files matched to
// known items, items to create, and records for files nothing claimed.
type ScanDecisions struct {
	Decisions []*Decision
	NewItems  []*models.LibraryItem
	Unmapped  []*models.FileRecord
}

// GetImportDecisionsForScan evaluates paths with no target item: each file
// is identified from scratch and routed to one of the three outcomes.
func (e *Engine) GetImportDecisionsForScan(ctx context.Context, paths []string, opts Options) (*ScanDecisions, error) {
	out := &ScanDecisions{}
	seenNew := make(map[string]bool)

	for _, path := range paths {
		parsed := parser.Parse(path)

		item, err := e.identifier.Identify(ctx, path, parsed)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("identification failed, treating file as unmapped")
			item = nil
		}

		switch {
		case item == nil:
			// No confident match: index it as unmapped without running the
			// rejection chain.
			out.Unmapped = append(out.Unmapped, e.buildUnmappedRecord(path, parsed, opts))
		case item.ID == 0:
			key := newItemKey(item)
			if !seenNew[key] {
				seenNew[key] = true
				out.NewItems = append(out.NewItems, item)
			}
		default:
			out.Decisions = append(out.Decisions, e.evaluate(ctx, path, item, opts))
		}
	}
	return out, nil
}

// evaluate produces the decision for a single candidate. Any panic or error
// inside augmentation or a specification is contained to this file.
func (e *Engine) evaluate(ctx context.Context, path string, item *models.LibraryItem, opts Options) (d *Decision) {
	c := &Candidate{
		Path:            path,
		Size:            statSize(path),
		Item:            item,
		ParsedInfo:      parser.Parse(path),
		SceneSource:     opts.SceneSource,
		DownloadContext: opts.DownloadContext,
		ExistingFile:    isExistingFile(path, item),
	}
	d = &Decision{Candidate: c}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("path", path).Interface("panic", r).Msg("decision evaluation panicked")
			d.reject("engine", fmt.Sprintf("unexpected failure evaluating file: %v", r))
		}
	}()

	e.augment(c, d)

	if e.scorer != nil {
		probe := &models.FileRecord{SceneName: c.SceneName(), OriginalPath: path}
		c.CustomFormats = e.scorer.ParseCustomFormats(item, probe)
		c.FormatScore = e.scorer.Score(c.CustomFormats)
	}

	for _, spec := range e.specs {
		e.runSpecification(ctx, spec, c, d)
	}
	return d
}

// augment runs the ordered augmenter chain and merges the partial results
// by confidence. One failing augmenter rejects only this candidate.
func (e *Engine) augment(c *Candidate, d *Decision) {
	results := make([]*AugmentResult, 0, len(e.augmenters))
	for _, a := range e.augmenters {
		r, err := a.Augment(c, c.DownloadContext)
		if err != nil {
			log.Warn().Err(err).Str("augmenter", a.Name()).Str("path", c.Path).Msg("augmentation failed")
			d.reject(a.Name(), fmt.Sprintf("augmentation failed: %v", err))
			continue
		}
		results = append(results, r)
	}
	c.Quality = mergeAugmentResults(results)
}

// runSpecification isolates a single rule: not-applicable is a silent pass,
// a RejectionError is recorded verbatim, and anything else (including a
// panic) becomes a rejection naming the specification so one broken rule
// cannot abort the batch.
func (e *Engine) runSpecification(_ context.Context, spec Specification, c *Candidate, d *Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("specification", spec.Name()).Str("path", c.Path).Interface("panic", r).Msg("specification panicked")
			d.reject(spec.Name(), fmt.Sprintf("specification failed unexpectedly: %v", r))
		}
	}()

	err := spec.Evaluate(c)
	switch {
	case err == nil:
		return
	case err == ErrNotApplicable:
		return
	default:
		if rej, ok := err.(*RejectionError); ok {
			d.reject(spec.Name(), rej.Reason)
			return
		}
		log.Warn().Err(err).Str("specification", spec.Name()).Str("path", c.Path).Msg("specification error")
		d.reject(spec.Name(), fmt.Sprintf("specification failed: %v", err))
	}
}

func (e *Engine) filterKnownFiles(ctx context.Context, paths []string, item *models.LibraryItem) ([]string, error) {
	if e.files == nil || item == nil || item.ID == 0 {
		return paths, nil
	}
	known, err := e.files.FindByParent(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	knownPaths := make(map[string]bool, len(known))
	for _, f := range known {
		knownPaths[pathutil.Normalize(filepath.Join(item.Path, f.RelativePath))] = true
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !knownPaths[pathutil.Normalize(p)] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (e *Engine) buildUnmappedRecord(path string, parsed *parser.ParsedInfo, opts Options) *models.FileRecord {
	c := &Candidate{
		Path:            path,
		Size:            statSize(path),
		ParsedInfo:      parsed,
		DownloadContext: opts.DownloadContext,
	}
	results := make([]*AugmentResult, 0, len(e.augmenters))
	for _, a := range e.augmenters {
		if r, err := a.Augment(c, opts.DownloadContext); err == nil {
			results = append(results, r)
		}
	}

	rec := &models.FileRecord{
		ItemID:       models.UnmappedItemID,
		OriginalPath: path,
		Size:         c.Size,
		Quality:      mergeAugmentResults(results),
		MediaInfo:    c.MediaInfo,
		DateAdded:    time.Now().UTC(),
	}
	if parsed != nil {
		rec.SceneName = parsed.SceneName
		rec.ReleaseGroup = parsed.ReleaseGroup
		rec.Edition = parsed.Edition
	}
	return rec
}

// statSize queries the file size defensively: a missing or unreadable file
// is a normal zero-length candidate, not a hard error.
func statSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func isExistingFile(path string, item *models.LibraryItem) bool {
	if item == nil || item.File == nil {
		return false
	}
	return pathutil.Normalize(filepath.Join(item.Path, item.File.RelativePath)) == pathutil.Normalize(path)
}

func newItemKey(item *models.LibraryItem) string {
	if item.ForeignID != "" {
		return item.ForeignID
	}
	key := parser.CleanTitle(item.Title)
	if item.ReleaseDate != nil {
		key += "|" + item.ReleaseDate.Format("2006-01-02")
	}
	return key
}
