// Package organizer moves accepted files into their canonical library
// location and keeps the file index pointed at the result.
package organizer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/decision"
	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/naming"
	"github.com/scenevault/scenevault/internal/notifications"
	"github.com/scenevault/scenevault/internal/pathutil"
)

// FileStore is the file-index slice the organizer writes to.
type FileStore interface {
	Insert(ctx context.Context, f *models.FileRecord) error
	Delete(ctx context.Context, id int64) error
}

// ItemStore updates the owning item after an import.
type ItemStore interface {
	SetFileReference(ctx context.Context, itemID, fileID int64) error
	Update(ctx context.Context, item *models.LibraryItem) error
}

// ConfigProvider yields the current naming snapshot per import.
type ConfigProvider interface {
	NamingConfig(ctx context.Context) (models.NamingConfig, error)
}

type Organizer struct {
	naming *naming.Builder
	files  FileStore
	items  ItemStore
	config ConfigProvider
	events notifications.Sink
}

func NewOrganizer(builder *naming.Builder, files FileStore, items ItemStore,
	config ConfigProvider, events notifications.Sink,
) *Organizer {
	return &Organizer{naming: builder, files: files, items: items, config: config, events: events}
}

// Import moves an approved candidate into the library, inserts its file
// record and points the item at it. The previous file record, if any, is
// removed after the new one is in place.
func (o *Organizer) Import(ctx context.Context, d *decision.Decision) (*models.FileRecord, error) {
	if !d.Approved() {
		return nil, fmt.Errorf("cannot import rejected candidate %s", d.Candidate.Path)
	}
	c := d.Candidate
	if c.Item == nil || c.Item.ID == 0 {
		return nil, fmt.Errorf("candidate %s has no persisted library item", c.Path)
	}

	cfg, err := o.config.NamingConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load naming config: %w", err)
	}

	record := recordFromCandidate(c)

	folder, err := o.naming.Folder(c.Item, cfg)
	if err != nil {
		return nil, fmt.Errorf("build folder for item %d: %w", c.Item.ID, err)
	}
	fileName, err := o.naming.FileName(c.Item, record, cfg)
	if err != nil {
		return nil, fmt.Errorf("build file name for item %d: %w", c.Item.ID, err)
	}
	fileName += filepath.Ext(c.Path)

	itemPath := filepath.Join(c.Item.RootFolderPath, folder)
	destination := filepath.Join(itemPath, fileName)

	if !pathutil.Equal(c.Path, destination) {
		if err := moveFile(c.Path, destination); err != nil {
			return nil, fmt.Errorf("move %s: %w", c.Path, err)
		}
	}

	record.RelativePath = fileName
	if err := o.files.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("index %s: %w", destination, err)
	}

	previousFileID := c.Item.FileID
	if err := o.items.SetFileReference(ctx, c.Item.ID, record.ID); err != nil {
		return nil, fmt.Errorf("attach file %d to item %d: %w", record.ID, c.Item.ID, err)
	}
	c.Item.FileID = record.ID
	c.Item.File = record

	if c.Item.Path != itemPath {
		c.Item.Path = itemPath
		if err := o.items.Update(ctx, c.Item); err != nil {
			log.Warn().Err(err).Int64("item_id", c.Item.ID).Msg("organize: could not update item path")
		}
	}

	if previousFileID != 0 && previousFileID != record.ID {
		if err := o.files.Delete(ctx, previousFileID); err != nil {
			log.Warn().Err(err).Int64("file_id", previousFileID).Msg("organize: could not remove replaced record")
		}
	}

	log.Info().Str("from", c.Path).Str("to", destination).Int64("item_id", c.Item.ID).Msg("imported")
	o.events.Publish(notifications.NewEvent(notifications.EventItemImported, "Imported",
		fmt.Sprintf("%s: %s", c.Item.Title, fileName)))
	return record, nil
}

func recordFromCandidate(c *decision.Candidate) *models.FileRecord {
	record := &models.FileRecord{
		ItemID:       c.Item.ID,
		OriginalPath: c.Path,
		Size:         c.Size,
		Quality:      c.Quality,
		MediaInfo:    c.MediaInfo,
		SceneName:    c.SceneName(),
		DateAdded:    time.Now().UTC(),
	}
	if c.ParsedInfo != nil {
		record.ReleaseGroup = c.ParsedInfo.ReleaseGroup
		record.Edition = c.ParsedInfo.Edition
	}
	if record.ReleaseGroup == "" && c.DownloadContext != nil {
		record.ReleaseGroup = c.DownloadContext.ReleaseGroup
	}
	return record
}

// moveFile renames within a filesystem and falls back to copy-then-remove
// across mount points.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), ".import-*")
	if err != nil {
		return err
	}
	tmp := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}
