package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scenevault/scenevault/internal/models"
)

// ExclusionRepository tracks deleted items that must stay deleted; the
// identifier consults it before resurrecting an item from disk.
type ExclusionRepository struct {
	db *sql.DB
}

func NewExclusionRepository(db *sql.DB) *ExclusionRepository {
	return &ExclusionRepository{db: db}
}

func (r *ExclusionRepository) Add(ctx context.Context, e *models.ImportExclusion) error {
	query := `INSERT INTO import_exclusions (foreign_id, title, year)
		VALUES ($1, $2, $3) ON CONFLICT (foreign_id) DO NOTHING RETURNING id`
	err := r.db.QueryRowContext(ctx, query, e.ForeignID, e.Title, e.Year).Scan(&e.ID)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

func (r *ExclusionRepository) Remove(ctx context.Context, foreignID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM import_exclusions WHERE foreign_id = $1`, foreignID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("exclusion not found")
	}
	return nil
}

func (r *ExclusionRepository) IsExcluded(ctx context.Context, foreignID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM import_exclusions WHERE foreign_id = $1)`, foreignID).Scan(&exists)
	return exists, err
}

func (r *ExclusionRepository) List(ctx context.Context) ([]*models.ImportExclusion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, foreign_id, title, year FROM import_exclusions ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exclusions []*models.ImportExclusion
	for rows.Next() {
		e := &models.ImportExclusion{}
		if err := rows.Scan(&e.ID, &e.ForeignID, &e.Title, &e.Year); err != nil {
			return nil, err
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, rows.Err()
}
