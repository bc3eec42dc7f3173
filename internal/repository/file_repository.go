package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/scenevault/scenevault/internal/models"
)

// FileRepository persists the file index. Quality and media info are
// stored as jsonb so the quality table can evolve without migrations.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, item_id, relative_path, original_path, size, quality, media_info,
	scene_name, release_group, edition, date_added`

func (r *FileRepository) Insert(ctx context.Context, f *models.FileRecord) error {
	quality, mediaInfo, err := marshalFileBlobs(f)
	if err != nil {
		return err
	}
	query := `INSERT INTO files (item_id, relative_path, original_path, size, quality, media_info,
		scene_name, release_group, edition, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	return r.db.QueryRowContext(ctx, query, f.ItemID, f.RelativePath, f.OriginalPath, f.Size,
		quality, mediaInfo, f.SceneName, f.ReleaseGroup, f.Edition, f.DateAdded).Scan(&f.ID)
}

// InsertMany writes all records in one transaction; either every record in
// the batch lands or none do.
func (r *FileRepository) InsertMany(ctx context.Context, records []*models.FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO files (item_id, relative_path, original_path,
		size, quality, media_info, scene_name, release_group, edition, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range records {
		quality, mediaInfo, err := marshalFileBlobs(f)
		if err != nil {
			return err
		}
		if err := stmt.QueryRowContext(ctx, f.ItemID, f.RelativePath, f.OriginalPath, f.Size,
			quality, mediaInfo, f.SceneName, f.ReleaseGroup, f.Edition, f.DateAdded).Scan(&f.ID); err != nil {
			return fmt.Errorf("insert %s: %w", f.OriginalPath, err)
		}
	}
	return tx.Commit()
}

func (r *FileRepository) Update(ctx context.Context, f *models.FileRecord) error {
	quality, mediaInfo, err := marshalFileBlobs(f)
	if err != nil {
		return err
	}
	query := `UPDATE files SET item_id=$1, relative_path=$2, original_path=$3, size=$4, quality=$5,
		media_info=$6, scene_name=$7, release_group=$8, edition=$9 WHERE id=$10`
	result, err := r.db.ExecContext(ctx, query, f.ItemID, f.RelativePath, f.OriginalPath, f.Size,
		quality, mediaInfo, f.SceneName, f.ReleaseGroup, f.Edition, f.ID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file record not found")
	}
	return nil
}

func (r *FileRepository) UpdateMany(ctx context.Context, records []*models.FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE files SET item_id=$1, relative_path=$2,
		original_path=$3, size=$4, quality=$5, media_info=$6, scene_name=$7, release_group=$8,
		edition=$9 WHERE id=$10`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range records {
		quality, mediaInfo, err := marshalFileBlobs(f)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, f.ItemID, f.RelativePath, f.OriginalPath, f.Size,
			quality, mediaInfo, f.SceneName, f.ReleaseGroup, f.Edition, f.ID); err != nil {
			return fmt.Errorf("update file %d: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file record not found")
	}
	return nil
}

func (r *FileRepository) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete file %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	f, err := scanFileRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file record not found")
	}
	return f, err
}

func (r *FileRepository) FindByParent(ctx context.Context, itemID int64) ([]*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE item_id = $1 ORDER BY relative_path`
	return r.queryFiles(ctx, query, itemID)
}

// FindUnmapped returns the scratch records no library item claims.
func (r *FileRepository) FindUnmapped(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE item_id = $1 ORDER BY date_added`
	return r.queryFiles(ctx, query, models.UnmappedItemID)
}

// FindByPathPrefix matches on original_path, the identity key for files
// that have not been organized yet.
func (r *FileRepository) FindByPathPrefix(ctx context.Context, prefix string) ([]*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE original_path LIKE $1 || '%' ORDER BY original_path`
	return r.queryFiles(ctx, query, prefix)
}

func (r *FileRepository) queryFiles(ctx context.Context, query string, args ...interface{}) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.FileRecord
	for rows.Next() {
		f, err := scanFileRow(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFileRow(row rowScanner) (*models.FileRecord, error) {
	f := &models.FileRecord{}
	var quality []byte
	var mediaInfo []byte
	err := row.Scan(&f.ID, &f.ItemID, &f.RelativePath, &f.OriginalPath, &f.Size,
		&quality, &mediaInfo, &f.SceneName, &f.ReleaseGroup, &f.Edition, &f.DateAdded)
	if err != nil {
		return nil, err
	}
	if len(quality) > 0 {
		if err := json.Unmarshal(quality, &f.Quality); err != nil {
			return nil, fmt.Errorf("file %d: decode quality: %w", f.ID, err)
		}
	}
	if len(mediaInfo) > 0 {
		f.MediaInfo = &models.MediaInfo{}
		if err := json.Unmarshal(mediaInfo, f.MediaInfo); err != nil {
			return nil, fmt.Errorf("file %d: decode media info: %w", f.ID, err)
		}
	}
	return f, nil
}

func marshalFileBlobs(f *models.FileRecord) ([]byte, []byte, error) {
	quality, err := json.Marshal(f.Quality)
	if err != nil {
		return nil, nil, fmt.Errorf("encode quality: %w", err)
	}
	var mediaInfo []byte
	if f.MediaInfo != nil {
		mediaInfo, err = json.Marshal(f.MediaInfo)
		if err != nil {
			return nil, nil, fmt.Errorf("encode media info: %w", err)
		}
	}
	return quality, mediaInfo, nil
}
