package organizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenevault/scenevault/internal/decision"
	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/naming"
	"github.com/scenevault/scenevault/internal/notifications"
)

type fakeFileStore struct {
	inserted []*models.FileRecord
	deleted  []int64
	nextID   int64
}

func (f *fakeFileStore) Insert(_ context.Context, record *models.FileRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.inserted = append(f.inserted, record)
	return nil
}

func (f *fakeFileStore) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeItemStore struct {
	references map[int64]int64
	updated    []*models.LibraryItem
}

func (f *fakeItemStore) SetFileReference(_ context.Context, itemID, fileID int64) error {
	if f.references == nil {
		f.references = make(map[int64]int64)
	}
	f.references[itemID] = fileID
	return nil
}

func (f *fakeItemStore) Update(_ context.Context, item *models.LibraryItem) error {
	f.updated = append(f.updated, item)
	return nil
}

type fakeConfig struct{ cfg models.NamingConfig }

func (f *fakeConfig) NamingConfig(_ context.Context) (models.NamingConfig, error) {
	return f.cfg, nil
}

type fakeSink struct{ events []notifications.Event }

func (f *fakeSink) Publish(e notifications.Event) { f.events = append(f.events, e) }

func movieItem(root string) *models.LibraryItem {
	return &models.LibraryItem{
		ID:             5,
		Title:          "Example",
		Year:           2020,
		ItemType:       models.ItemTypeMovie,
		RootFolderPath: root,
	}
}

func approvedDecision(item *models.LibraryItem, path string) *decision.Decision {
	return &decision.Decision{Candidate: &decision.Candidate{
		Path:    path,
		Size:    1000,
		Item:    item,
		Quality: models.Quality{Definition: models.QualityDefinition{Title: "WEBDL-1080p"}, Revision: models.Revision{Version: 1}},
	}}
}

func TestImportMovesAndIndexesFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "downloads", "example.2020.1080p.mkv")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))

	files := &fakeFileStore{}
	items := &fakeItemStore{}
	sink := &fakeSink{}
	org := NewOrganizer(naming.NewBuilder(nil), files, items,
		&fakeConfig{cfg: models.DefaultNamingConfig()}, sink)

	item := movieItem(root)
	record, err := org.Import(context.Background(), approvedDecision(item, src))
	require.NoError(t, err)

	dest := filepath.Join(root, "Example (2020)", "Example (2020) WEBDL-1080p.mkv")
	_, statErr := os.Stat(dest)
	assert.NoError(t, statErr, "file moved to canonical location")
	_, statErr = os.Stat(src)
	assert.True(t, os.IsNotExist(statErr), "source removed")

	require.Len(t, files.inserted, 1)
	assert.Equal(t, int64(5), record.ItemID)
	assert.Equal(t, "Example (2020) WEBDL-1080p.mkv", record.RelativePath)
	assert.Equal(t, src, record.OriginalPath)
	assert.WithinDuration(t, time.Now().UTC(), record.DateAdded, time.Minute)

	assert.Equal(t, record.ID, items.references[5])
	assert.Equal(t, record.ID, item.FileID)
	assert.Equal(t, filepath.Join(root, "Example (2020)"), item.Path)
	require.Len(t, sink.events, 1)
	assert.Equal(t, notifications.EventItemImported, sink.events[0].Type)
}

func TestImportRemovesReplacedRecord(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "better.mkv")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))

	files := &fakeFileStore{nextID: 10}
	items := &fakeItemStore{}
	org := NewOrganizer(naming.NewBuilder(nil), files, items,
		&fakeConfig{cfg: models.DefaultNamingConfig()}, &fakeSink{})

	item := movieItem(root)
	item.FileID = 4

	_, err := org.Import(context.Background(), approvedDecision(item, src))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, files.deleted)
}

func TestImportRejectsUnapprovedDecision(t *testing.T) {
	org := NewOrganizer(naming.NewBuilder(nil), &fakeFileStore{}, &fakeItemStore{},
		&fakeConfig{cfg: models.DefaultNamingConfig()}, &fakeSink{})

	d := approvedDecision(movieItem(t.TempDir()), "/x/a.mkv")
	d.Rejections = []decision.Rejection{{Specification: "sample", Reason: "too small"}}

	_, err := org.Import(context.Background(), d)
	assert.Error(t, err)
}

func TestImportRequiresPersistedItem(t *testing.T) {
	org := NewOrganizer(naming.NewBuilder(nil), &fakeFileStore{}, &fakeItemStore{},
		&fakeConfig{cfg: models.DefaultNamingConfig()}, &fakeSink{})

	item := movieItem(t.TempDir())
	item.ID = 0

	_, err := org.Import(context.Background(), approvedDecision(item, "/x/a.mkv"))
	assert.Error(t, err)
}
