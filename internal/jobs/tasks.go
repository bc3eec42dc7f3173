package jobs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/models"
)

// ──────────────────── Payloads ────────────────────

type ScanPayload struct {
	Roots []string `json:"roots,omitempty"`
}

type ItemCreatePayload struct {
	Items []*models.LibraryItem `json:"items"`
}

type CleanFolderPayload struct {
	Folder string `json:"folder"`
}

// ──────────────────── Enqueuer ────────────────────

// Enqueuer adapts the queue to the scanner's and scheduler's needs.
type Enqueuer struct {
	queue *Queue
}

func NewEnqueuer(queue *Queue) *Enqueuer {
	return &Enqueuer{queue: queue}
}

// EnqueueScan schedules a scan of the given roots, or all roots when none
// are given. One scan task per root set may be pending at a time.
func (e *Enqueuer) EnqueueScan(_ context.Context, roots ...string) error {
	id := "scan:" + shortHash(strings.Join(roots, "|"))
	_, err := e.queue.EnqueueUnique(TaskScan, ScanPayload{Roots: roots}, id)
	return err
}

// EnqueueItemCreate schedules creation of a batch of proposed items. The
// task id is derived from the batch's foreign ids, so a rescan that finds
// the same new items while creation is pending does not double-queue them.
func (e *Enqueuer) EnqueueItemCreate(_ context.Context, items []*models.LibraryItem) error {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.ForeignID
	}
	id := "items:" + shortHash(strings.Join(keys, "|"))
	_, err := e.queue.EnqueueUnique(TaskItemCreate, ItemCreatePayload{Items: items}, id)
	return err
}

func (e *Enqueuer) EnqueueCleanFolder(_ context.Context, folder string) error {
	id := "clean:" + shortHash(folder)
	_, err := e.queue.EnqueueUnique(TaskCleanFolder, CleanFolderPayload{Folder: folder}, id, asynq.Queue("low"))
	return err
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// ──────────────────── Handlers ────────────────────

// Scanner is the scan service slice the handlers drive.
type Scanner interface {
	Scan(ctx context.Context, roots ...string) (*models.ScanResult, error)
	CleanFolder(ctx context.Context, folder string, filesOnDisk []string) (int, error)
}

// ItemStore persists proposed items.
type ItemStore interface {
	Create(ctx context.Context, item *models.LibraryItem) error
	GetByForeignID(ctx context.Context, foreignID string) (*models.LibraryItem, error)
}

func NewScanHandler(scanner Scanner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode scan payload: %w", err)
		}
		result, err := scanner.Scan(ctx, payload.Roots...)
		if err != nil {
			return err
		}
		log.Info().Int("roots", result.RootsScanned).Int("files", result.FilesSeen).
			Int("unmapped", result.UnmappedAdded).Int("queued", result.ItemsQueued).
			Msg("scan task finished")
		return nil
	}
}

// NewItemCreateHandler persists each proposed item, skipping those another
// task created in the meantime. A single failing item does not fail the
// batch.
func NewItemCreateHandler(items ItemStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ItemCreatePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode item-create payload: %w", err)
		}

		var failed int
		for _, item := range payload.Items {
			existing, err := items.GetByForeignID(ctx, item.ForeignID)
			if err != nil {
				log.Error().Err(err).Str("foreign_id", item.ForeignID).Msg("item-create: lookup failed")
				failed++
				continue
			}
			if existing != nil {
				continue
			}
			if item.Studio != nil && item.StudioID == nil {
				id := item.Studio.ID
				item.StudioID = &id
			}
			if err := items.Create(ctx, item); err != nil {
				log.Error().Err(err).Str("title", item.Title).Msg("item-create: insert failed")
				failed++
				continue
			}
			log.Info().Str("title", item.Title).Int64("item_id", item.ID).Msg("item created")
		}
		if failed > 0 {
			return fmt.Errorf("item-create: %d of %d items failed", failed, len(payload.Items))
		}
		return nil
	}
}

// NewCleanFolderHandler lists the folder's current files and reconciles
// the index against them.
func NewCleanFolderHandler(scanner Scanner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CleanFolderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode clean payload: %w", err)
		}

		var onDisk []string
		err := filepath.WalkDir(payload.Folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				onDisk = append(onDisk, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("list %s: %w", payload.Folder, err)
		}

		removed, err := scanner.CleanFolder(ctx, payload.Folder, onDisk)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Info().Int("removed", removed).Str("folder", payload.Folder).Msg("clean task finished")
		}
		return nil
	}
}
