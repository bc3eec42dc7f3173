package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenevault/scenevault/internal/models"
)

type fakeScanner struct {
	scannedRoots  [][]string
	cleanedFolder string
	cleanedFiles  []string
}

func (f *fakeScanner) Scan(_ context.Context, roots ...string) (*models.ScanResult, error) {
	f.scannedRoots = append(f.scannedRoots, roots)
	return &models.ScanResult{RootsScanned: len(roots)}, nil
}

func (f *fakeScanner) CleanFolder(_ context.Context, folder string, filesOnDisk []string) (int, error) {
	f.cleanedFolder = folder
	f.cleanedFiles = filesOnDisk
	return 1, nil
}

type fakeItemStore struct {
	existing map[string]*models.LibraryItem
	created  []*models.LibraryItem
	createErr map[string]error
}

func (f *fakeItemStore) Create(_ context.Context, item *models.LibraryItem) error {
	if err := f.createErr[item.ForeignID]; err != nil {
		return err
	}
	item.ID = int64(len(f.created) + 1)
	f.created = append(f.created, item)
	return nil
}

func (f *fakeItemStore) GetByForeignID(_ context.Context, foreignID string) (*models.LibraryItem, error) {
	return f.existing[foreignID], nil
}

func taskOf(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, data)
}

func TestScanHandlerPassesRoots(t *testing.T) {
	scanner := &fakeScanner{}
	handler := NewScanHandler(scanner)

	err := handler(context.Background(), taskOf(t, TaskScan, ScanPayload{Roots: []string{"/a", "/b"}}))
	require.NoError(t, err)
	require.Len(t, scanner.scannedRoots, 1)
	assert.Equal(t, []string{"/a", "/b"}, scanner.scannedRoots[0])
}

func TestItemCreateHandlerSkipsExisting(t *testing.T) {
	store := &fakeItemStore{existing: map[string]*models.LibraryItem{
		"local:studio:2024-01-05:done": {ID: 9},
	}}
	handler := NewItemCreateHandler(store)

	payload := ItemCreatePayload{Items: []*models.LibraryItem{
		{ForeignID: "local:studio:2024-01-05:done", Title: "Done"},
		{ForeignID: "local:studio:2024-01-06:fresh", Title: "Fresh"},
	}}
	require.NoError(t, handler(context.Background(), taskOf(t, TaskItemCreate, payload)))

	require.Len(t, store.created, 1)
	assert.Equal(t, "Fresh", store.created[0].Title)
}

func TestItemCreateHandlerIsolatesFailures(t *testing.T) {
	store := &fakeItemStore{createErr: map[string]error{"bad": errors.New("constraint")}}
	handler := NewItemCreateHandler(store)

	payload := ItemCreatePayload{Items: []*models.LibraryItem{
		{ForeignID: "bad", Title: "Bad"},
		{ForeignID: "good", Title: "Good"},
	}}
	err := handler(context.Background(), taskOf(t, TaskItemCreate, payload))

	assert.Error(t, err, "failed batch is retried")
	require.Len(t, store.created, 1)
	assert.Equal(t, "Good", store.created[0].Title)
}

func TestItemCreateHandlerFillsStudioID(t *testing.T) {
	store := &fakeItemStore{}
	handler := NewItemCreateHandler(store)

	studio := &models.Studio{Title: "S", Slug: "s"}
	payload := ItemCreatePayload{Items: []*models.LibraryItem{
		{ForeignID: "x", Title: "X", Studio: studio},
	}}
	require.NoError(t, handler(context.Background(), taskOf(t, TaskItemCreate, payload)))

	require.Len(t, store.created, 1)
	require.NotNil(t, store.created[0].StudioID)
	assert.Equal(t, studio.ID, *store.created[0].StudioID)
}

func TestCleanFolderHandlerListsDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mkv"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.mkv"), []byte("x"), 0o644))

	scanner := &fakeScanner{}
	handler := NewCleanFolderHandler(scanner)

	require.NoError(t, handler(context.Background(), taskOf(t, TaskCleanFolder, CleanFolderPayload{Folder: dir})))

	assert.Equal(t, dir, scanner.cleanedFolder)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mkv"),
		filepath.Join(dir, "sub", "b.mkv"),
	}, scanner.cleanedFiles)
}
