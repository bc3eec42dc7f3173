package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/scenevault/scenevault/internal/models"
)

type StudioRepository struct {
	db *sql.DB
}

func NewStudioRepository(db *sql.DB) *StudioRepository {
	return &StudioRepository{db: db}
}

func (r *StudioRepository) Create(ctx context.Context, s *models.Studio) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `INSERT INTO studios (id, foreign_id, title, slug, network, website)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, s.ID, s.ForeignID, s.Title, s.Slug,
		s.Network, s.Website).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// EnsureMany upserts studios by slug inside one transaction so concurrent
// item creation never races on a missing studio row. Existing rows keep
// their metadata; only the id is read back.
func (r *StudioRepository) EnsureMany(ctx context.Context, studios []*models.Studio) error {
	if len(studios) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO studios (id, foreign_id, title, slug, network, website)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, created_at, updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range studios {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if err := stmt.QueryRowContext(ctx, s.ID, s.ForeignID, s.Title, s.Slug,
			s.Network, s.Website).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("ensure studio %s: %w", s.Slug, err)
		}
	}
	return tx.Commit()
}

func (r *StudioRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Studio, error) {
	query := `SELECT id, foreign_id, title, slug, network, website, created_at, updated_at
		FROM studios WHERE id = $1`
	s, err := scanStudioRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("studio not found")
	}
	return s, err
}

func (r *StudioRepository) GetBySlug(ctx context.Context, slug string) (*models.Studio, error) {
	query := `SELECT id, foreign_id, title, slug, network, website, created_at, updated_at
		FROM studios WHERE slug = $1`
	s, err := scanStudioRow(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *StudioRepository) List(ctx context.Context, limit, offset int) ([]*models.Studio, error) {
	query := `SELECT id, foreign_id, title, slug, network, website, created_at, updated_at
		FROM studios ORDER BY title LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var studios []*models.Studio
	for rows.Next() {
		s, err := scanStudioRow(rows)
		if err != nil {
			return nil, err
		}
		studios = append(studios, s)
	}
	return studios, rows.Err()
}

func scanStudioRow(row rowScanner) (*models.Studio, error) {
	s := &models.Studio{}
	err := row.Scan(&s.ID, &s.ForeignID, &s.Title, &s.Slug, &s.Network, &s.Website,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
