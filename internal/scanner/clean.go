package scanner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/notifications"
	"github.com/scenevault/scenevault/internal/pathutil"
)

// Clean removes file records under item that no longer correspond to a
// file in filesOnDisk. Records are judged, deleted, and reference-cleared
// one at a time so a single bad record cannot wedge the rest. Running it
// twice against the same listing is a no-op the second time.
func (s *DiskScanService) Clean(ctx context.Context, item *models.LibraryItem, filesOnDisk []string) (int, error) {
	records, err := s.files.FindByParent(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("load file records for item %d: %w", item.ID, err)
	}

	onDisk := buildPathSet(filesOnDisk)
	removed := 0
	for _, record := range records {
		full := filepath.Join(item.Path, record.RelativePath)
		if onDisk[pathutil.Normalize(full)] {
			continue
		}
		if err := s.files.Delete(ctx, record.ID); err != nil {
			log.Error().Err(err).Int64("file_id", record.ID).Str("path", full).
				Msg("clean: could not delete stale record")
			continue
		}
		removed++
		log.Info().Int64("file_id", record.ID).Str("path", full).Msg("clean: removed stale record")
		if item.FileID == record.ID && item.HasFile() {
			if err := s.items.ClearFileReference(ctx, item.ID); err != nil {
				log.Error().Err(err).Int64("item_id", item.ID).Msg("clean: could not clear file reference")
			} else {
				item.FileID = 0
				item.File = nil
			}
		}
	}
	return removed, nil
}

// CleanFolder reconciles every record whose original path sits under
// folder against the given disk listing. Unmapped records are judged by
// their original path, mapped records by their organized location; a
// parent item left pointing at a deleted record gets its file reference
// cleared.
func (s *DiskScanService) CleanFolder(ctx context.Context, folder string, filesOnDisk []string) (int, error) {
	records, err := s.files.FindByPathPrefix(ctx, folder)
	if err != nil {
		return 0, fmt.Errorf("load file records under %s: %w", folder, err)
	}

	items, err := s.items.ItemsInRoot(ctx, folder)
	if err != nil {
		return 0, fmt.Errorf("load items under %s: %w", folder, err)
	}
	itemsByID := make(map[int64]*models.LibraryItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	onDisk := buildPathSet(filesOnDisk)
	var stale []*models.FileRecord
	for _, record := range records {
		location := record.OriginalPath
		if !record.Unmapped() {
			item := itemsByID[record.ItemID]
			if item == nil {
				// Parent lives under another root; its own Clean pass owns it.
				continue
			}
			location = filepath.Join(item.Path, record.RelativePath)
		}
		if !onDisk[pathutil.Normalize(location)] {
			stale = append(stale, record)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed := 0
	for chunk := range chunks(stale, persistChunkSize) {
		ids := make([]int64, len(chunk))
		for i, record := range chunk {
			ids[i] = record.ID
		}
		if err := s.files.DeleteMany(ctx, ids); err != nil {
			log.Error().Err(err).Int("chunk", len(chunk)).Str("folder", folder).
				Msg("clean: could not delete stale records")
			continue
		}
		removed += len(chunk)
		for _, record := range chunk {
			item := itemsByID[record.ItemID]
			if record.Unmapped() || item == nil || item.FileID != record.ID {
				continue
			}
			if err := s.items.ClearFileReference(ctx, item.ID); err != nil {
				log.Error().Err(err).Int64("item_id", item.ID).Msg("clean: could not clear file reference")
				continue
			}
			item.FileID = 0
			item.File = nil
		}
	}
	if removed > 0 {
		s.events.Publish(notifications.NewEvent(notifications.EventCleanupCompleted, "Cleanup completed",
			fmt.Sprintf("%d stale records removed under %s", removed, folder)))
	}
	return removed, nil
}

func buildPathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[pathutil.Normalize(p)] = true
	}
	return set
}
