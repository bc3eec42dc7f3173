package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `i.id, i.foreign_id, i.title, i.sort_title, i.year, i.release_date,
	i.item_type, i.quality_profile_id, i.root_folder_path, i.path, i.monitored,
	i.studio_id, i.code, i.file_id, i.added, i.last_scanned`

func (r *ItemRepository) Create(ctx context.Context, item *models.LibraryItem) error {
	query := `INSERT INTO library_items (foreign_id, title, clean_title, sort_title, year,
		release_date, item_type, quality_profile_id, root_folder_path, path, monitored,
		studio_id, code, file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, added`
	return r.db.QueryRowContext(ctx, query, item.ForeignID, item.Title, parser.CleanTitle(item.Title),
		item.SortTitle, item.Year, item.ReleaseDate, item.ItemType, item.QualityProfileID,
		item.RootFolderPath, item.Path, item.Monitored, item.StudioID, item.Code,
		item.FileID).Scan(&item.ID, &item.Added)
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i WHERE i.id = $1`
	item, err := scanItemRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library item not found")
	}
	return item, err
}

func (r *ItemRepository) GetByForeignID(ctx context.Context, foreignID string) (*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i WHERE i.foreign_id = $1`
	item, err := scanItemRow(r.db.QueryRowContext(ctx, query, foreignID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// FindMovie matches on clean title plus year. A zero year matches any year,
// preferring the most recent release.
func (r *ItemRepository) FindMovie(ctx context.Context, cleanTitle string, year int) (*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i
		WHERE i.item_type = $1 AND i.clean_title = $2 AND ($3 = 0 OR i.year = $3)
		ORDER BY i.year DESC LIMIT 1`
	item, err := scanItemRow(r.db.QueryRowContext(ctx, query, models.ItemTypeMovie, cleanTitle, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// FindScene matches on the studio slug plus release date, then narrows by
// clean title when the studio shot more than one scene that day.
func (r *ItemRepository) FindScene(ctx context.Context, studioSlug string, releaseDate time.Time, cleanTitle string) (*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i
		JOIN studios s ON s.id = i.studio_id
		WHERE i.item_type = $1 AND s.slug = $2 AND i.release_date = $3
		ORDER BY (i.clean_title = $4) DESC, i.id LIMIT 1`
	item, err := scanItemRow(r.db.QueryRowContext(ctx, query, models.ItemTypeScene, studioSlug,
		releaseDate, cleanTitle))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func (r *ItemRepository) ItemsInRoot(ctx context.Context, rootFolder string) ([]*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i
		WHERE i.root_folder_path = $1 ORDER BY i.sort_title`
	return r.queryItems(ctx, query, rootFolder)
}

func (r *ItemRepository) List(ctx context.Context, itemType models.ItemType, limit, offset int) ([]*models.LibraryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM library_items i`
	var args []interface{}
	argIdx := 1
	if itemType != "" {
		query += fmt.Sprintf(` WHERE i.item_type = $%d`, argIdx)
		args = append(args, itemType)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY i.sort_title LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)
	return r.queryItems(ctx, query, args...)
}

func (r *ItemRepository) Update(ctx context.Context, item *models.LibraryItem) error {
	query := `UPDATE library_items SET foreign_id=$1, title=$2, clean_title=$3, sort_title=$4,
		year=$5, release_date=$6, quality_profile_id=$7, root_folder_path=$8, path=$9,
		monitored=$10, studio_id=$11, code=$12, file_id=$13, last_scanned=$14 WHERE id=$15`
	result, err := r.db.ExecContext(ctx, query, item.ForeignID, item.Title,
		parser.CleanTitle(item.Title), item.SortTitle, item.Year, item.ReleaseDate,
		item.QualityProfileID, item.RootFolderPath, item.Path, item.Monitored, item.StudioID,
		item.Code, item.FileID, item.LastScanned, item.ID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("library item not found")
	}
	return nil
}

// SetFileReference points the item at its imported file record.
func (r *ItemRepository) SetFileReference(ctx context.Context, itemID, fileID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE library_items SET file_id = $1, last_scanned = CURRENT_TIMESTAMP WHERE id = $2`,
		fileID, itemID)
	return err
}

// ClearFileReference detaches the item from a deleted file record.
func (r *ItemRepository) ClearFileReference(ctx context.Context, itemID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE library_items SET file_id = 0 WHERE id = $1`, itemID)
	return err
}

func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM library_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("library item not found")
	}
	return nil
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.LibraryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LibraryItem
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItemRow(row rowScanner) (*models.LibraryItem, error) {
	item := &models.LibraryItem{}
	var studioID uuid.NullUUID
	err := row.Scan(&item.ID, &item.ForeignID, &item.Title, &item.SortTitle, &item.Year,
		&item.ReleaseDate, &item.ItemType, &item.QualityProfileID, &item.RootFolderPath,
		&item.Path, &item.Monitored, &studioID, &item.Code, &item.FileID, &item.Added,
		&item.LastScanned)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		id := studioID.UUID
		item.StudioID = &id
	}
	return item, nil
}
