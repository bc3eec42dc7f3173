// Package scanner discovers video files under the configured root folders,
// drives the import decision engine over them, and keeps the persisted
// file index converged with what is actually on disk.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/decision"
	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/notifications"
	"github.com/scenevault/scenevault/internal/pathutil"
)

// persistChunkSize bounds each bulk write so transactions stay small.
// Chunk boundaries are the only points where partial scan progress becomes
// durable before the whole scan completes.
const persistChunkSize = 50

// ──────────────────── Collaborator Contracts ────────────────────

// FileIndex is the persisted-file-index collaborator.
type FileIndex interface {
	InsertMany(ctx context.Context, records []*models.FileRecord) error
	FindByParent(ctx context.Context, itemID int64) ([]*models.FileRecord, error)
	FindByPathPrefix(ctx context.Context, prefix string) ([]*models.FileRecord, error)
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// ItemIndex is the slice of the item store the scanner needs.
type ItemIndex interface {
	ItemsInRoot(ctx context.Context, rootFolder string) ([]*models.LibraryItem, error)
	ClearFileReference(ctx context.Context, itemID int64) error
}

// StudioEnsurer pre-creates studios so concurrently-created items that
// reference the same studio never race on its insert.
type StudioEnsurer interface {
	EnsureMany(ctx context.Context, studios []*models.Studio) error
}

// DecisionEngine is the import pipeline run in scratch mode.
type DecisionEngine interface {
	GetImportDecisionsForScan(ctx context.Context, paths []string, opts decision.Options) (*decision.ScanDecisions, error)
}

// ItemCreator enqueues asynchronous item-creation work.
type ItemCreator interface {
	EnqueueItemCreate(ctx context.Context, items []*models.LibraryItem) error
}

// Importer organizes an approved decision into the library.
type Importer interface {
	Import(ctx context.Context, d *decision.Decision) (*models.FileRecord, error)
}

// Settings is the read-only configuration snapshot the scanner consults.
type Settings struct {
	RootFolders        []string
	SceneFolderFormat  string
	FilterExtras       bool
	DeleteEmptyFolders bool
}

// SettingsProvider yields the current snapshot at scan start.
type SettingsProvider interface {
	ScanSettings() Settings
}

// ──────────────────── Service ────────────────────

// DiskScanService orchestrates disk scans and reconciliation.
type DiskScanService struct {
	files    FileIndex
	items    ItemIndex
	studios  StudioEnsurer
	engine   DecisionEngine
	creator  ItemCreator
	importer Importer
	events   notifications.Sink
	settings SettingsProvider
}

func NewDiskScanService(files FileIndex, items ItemIndex, studios StudioEnsurer,
	engine DecisionEngine, creator ItemCreator, importer Importer,
	events notifications.Sink, settings SettingsProvider,
) *DiskScanService {
	return &DiskScanService{
		files:    files,
		items:    items,
		studios:  studios,
		engine:   engine,
		creator:  creator,
		importer: importer,
		events:   events,
		settings: settings,
	}
}

// Scan walks the given root folders; with none given every configured root
// is scanned. A bad root is skipped with a recorded reason and does not
// abort the others.
func (s *DiskScanService) Scan(ctx context.Context, roots ...string) (*models.ScanResult, error) {
	cfg := s.settings.ScanSettings()
	if len(roots) == 0 {
		roots = cfg.RootFolders
	}

	result := &models.ScanResult{}
	for _, root := range roots {
		if err := s.scanRoot(ctx, root, cfg, result); err != nil {
			log.Warn().Err(err).Str("root", root).Msg("root skipped")
			result.RootsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", root, err))
			continue
		}
		result.RootsScanned++
	}

	s.events.Publish(notifications.NewEvent(notifications.EventScanCompleted, "Scan completed",
		fmt.Sprintf("%d roots scanned, %d files seen, %d unmapped added, %d items queued",
			result.RootsScanned, result.FilesSeen, result.UnmappedAdded, result.ItemsQueued)))
	return result, nil
}

func (s *DiskScanService) scanRoot(ctx context.Context, root string, cfg Settings, result *models.ScanResult) error {
	scanFolder := resolveImportFolder(root, cfg.SceneFolderFormat)

	if fi, err := os.Stat(scanFolder); err != nil || !fi.IsDir() {
		s.emitRootSkipped(ctx, root, "root folder is missing or not a directory")
		return fmt.Errorf("root folder unavailable: %s", scanFolder)
	}

	videoFiles, err := s.enumerateVideoFiles(scanFolder, cfg.FilterExtras)
	if err != nil {
		s.emitRootSkipped(ctx, root, err.Error())
		return err
	}
	result.FilesSeen += len(videoFiles)
	log.Info().Str("root", root).Int("files", len(videoFiles)).Msg("scan: enumerated video files")

	videoFiles = s.filterIndexedPaths(ctx, root, scanFolder, videoFiles)

	decisions, err := s.engine.GetImportDecisionsForScan(ctx, videoFiles, decision.Options{})
	if err != nil {
		return fmt.Errorf("decision engine: %w", err)
	}

	s.persistUnmapped(ctx, decisions.Unmapped, result)
	s.persistNewItems(ctx, decisions.NewItems, result)
	s.importApproved(ctx, decisions.Decisions, result)

	if cfg.DeleteEmptyFolders {
		s.removeEmptyFolders(scanFolder)
	}
	return nil
}

// filterIndexedPaths drops files the index already tracks, either as an
// unmapped record keyed by original path or as the organized file of an
// item in this root, so a rescan only feeds new files to the decision
// engine. An original path must stay unique across the unmapped set; a
// lookup failure degrades to a partial filter rather than aborting the
// scan.
func (s *DiskScanService) filterIndexedPaths(ctx context.Context, root, scanFolder string, paths []string) []string {
	known := make(map[string]bool)

	records, err := s.files.FindByPathPrefix(ctx, scanFolder)
	if err != nil {
		log.Warn().Err(err).Str("folder", scanFolder).Msg("scan: could not load indexed files for path filter")
	}
	for _, record := range records {
		if record.Unmapped() {
			known[pathutil.Normalize(record.OriginalPath)] = true
		}
	}

	items, err := s.items.ItemsInRoot(ctx, root)
	if err != nil {
		log.Warn().Err(err).Str("root", root).Msg("scan: could not load items for path filter")
	}
	for _, item := range items {
		if item.ID == 0 {
			continue
		}
		owned, err := s.files.FindByParent(ctx, item.ID)
		if err != nil {
			log.Warn().Err(err).Int64("item_id", item.ID).Msg("scan: could not load item files for path filter")
			continue
		}
		for _, record := range owned {
			known[pathutil.Normalize(filepath.Join(item.Path, record.RelativePath))] = true
		}
	}

	if len(known) == 0 {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !known[pathutil.Normalize(p)] {
			out = append(out, p)
		}
	}
	if skipped := len(paths) - len(out); skipped > 0 {
		log.Debug().Str("root", root).Int("skipped", skipped).Msg("scan: skipped already-indexed files")
	}
	return out
}

// emitRootSkipped records one skip event per item still waiting on this
// root, so an unusable root never fails silently.
func (s *DiskScanService) emitRootSkipped(ctx context.Context, root, reason string) {
	pending, err := s.items.ItemsInRoot(ctx, root)
	if err != nil {
		log.Warn().Err(err).Str("root", root).Msg("could not list pending items for skip events")
		s.events.Publish(notifications.NewEvent(notifications.EventScanSkipped, "Scan skipped", reason))
		return
	}
	for _, item := range pending {
		s.events.Publish(notifications.NewEvent(notifications.EventScanSkipped, "Scan skipped",
			fmt.Sprintf("%s: %s", item.Title, reason)))
	}
}

// persistUnmapped bulk-inserts unmapped records in fixed-size chunks. A
// failing chunk is logged and skipped; later chunks still persist.
func (s *DiskScanService) persistUnmapped(ctx context.Context, records []*models.FileRecord, result *models.ScanResult) {
	for chunk := range chunks(records, persistChunkSize) {
		if err := s.files.InsertMany(ctx, chunk); err != nil {
			log.Error().Err(err).Int("chunk", len(chunk)).Msg("scan: unmapped insert failed")
			result.Errors = append(result.Errors, fmt.Sprintf("unmapped insert: %v", err))
			continue
		}
		result.UnmappedAdded += len(chunk)
	}
}

// persistNewItems first ensures the prerequisite studios exist, then hands
// item creation to the queue in chunks.
func (s *DiskScanService) persistNewItems(ctx context.Context, items []*models.LibraryItem, result *models.ScanResult) {
	if len(items) == 0 {
		return
	}

	studios := make([]*models.Studio, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Studio == nil {
			continue
		}
		key := item.Studio.Slug
		if key == "" {
			key = strings.ToLower(item.Studio.Title)
		}
		if key != "" && !seen[key] {
			seen[key] = true
			studios = append(studios, item.Studio)
		}
	}
	if len(studios) > 0 {
		if err := s.studios.EnsureMany(ctx, studios); err != nil {
			log.Error().Err(err).Msg("scan: studio pre-creation failed")
			result.Errors = append(result.Errors, fmt.Sprintf("studio pre-creation: %v", err))
			return
		}
	}

	for chunk := range chunks(items, persistChunkSize) {
		if err := s.creator.EnqueueItemCreate(ctx, chunk); err != nil {
			log.Error().Err(err).Int("chunk", len(chunk)).Msg("scan: item-create enqueue failed")
			result.Errors = append(result.Errors, fmt.Sprintf("item-create enqueue: %v", err))
			continue
		}
		result.ItemsQueued += len(chunk)
	}
}

// importApproved hands each approved matched candidate to the organizer.
// Rejected candidates stay where they are; their reasons were already
// recorded on the decision.
func (s *DiskScanService) importApproved(ctx context.Context, decisions []*decision.Decision, result *models.ScanResult) {
	for _, d := range decisions {
		if !d.Approved() || d.Candidate.ExistingFile {
			continue
		}
		if _, err := s.importer.Import(ctx, d); err != nil {
			log.Error().Err(err).Str("path", d.Candidate.Path).Msg("scan: import failed")
			result.Errors = append(result.Errors, fmt.Sprintf("import %s: %v", d.Candidate.Path, err))
			continue
		}
		result.FilesImported++
	}
}

func (s *DiskScanService) enumerateVideoFiles(folder string, filterExtras bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("scan: walk error")
			return nil
		}
		if d.IsDir() {
			if path != folder && isExcludedFolder(d.Name(), filterExtras) {
				return fs.SkipDir
			}
			return nil
		}
		if !IsVideoFile(d.Name()) || isHiddenFile(d.Name()) {
			return nil
		}
		if filterExtras && isExtraFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// removeEmptyFolders prunes empty directories bottom-up. The scan folder
// itself is never removed.
func (s *DiskScanService) removeEmptyFolders(folder string) {
	var dirs []string
	filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != folder {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first so a chain of empty parents collapses in one pass.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err == nil && len(entries) == 0 {
			if err := os.Remove(dirs[i]); err != nil {
				log.Warn().Err(err).Str("dir", dirs[i]).Msg("scan: could not remove empty folder")
			}
		}
	}
}

// resolveImportFolder appends the literal leading segment of the scene
// folder pattern to the root, when the pattern has one. A token segment
// means items sit directly under the root.
func resolveImportFolder(root, sceneFolderFormat string) string {
	first := sceneFolderFormat
	if i := strings.IndexAny(first, `/\`); i >= 0 {
		first = first[:i]
	}
	if first == "" || strings.Contains(first, "{") {
		return root
	}
	return filepath.Join(root, first)
}

// chunks yields fixed-size sub-slices of s.
func chunks[T any](s []T, size int) func(func([]T) bool) {
	return func(yield func([]T) bool) {
		for start := 0; start < len(s); start += size {
			end := start + size
			if end > len(s) {
				end = len(s)
			}
			if !yield(s[start:end]) {
				return
			}
		}
	}
}
