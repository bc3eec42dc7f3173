package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/scenevault/scenevault/internal/models"
)

type PerformerRepository struct {
	db *sql.DB
}

func NewPerformerRepository(db *sql.DB) *PerformerRepository {
	return &PerformerRepository{db: db}
}

// EnsureMany upserts performers by name, reading back ids for new and
// existing rows alike.
func (r *PerformerRepository) EnsureMany(ctx context.Context, performers []*models.Performer) error {
	if len(performers) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO performers (id, foreign_id, name, gender)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range performers {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if err := stmt.QueryRowContext(ctx, p.ID, p.ForeignID, p.Name, p.Gender).Scan(&p.ID); err != nil {
			return fmt.Errorf("ensure performer %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// GetCredits loads the ordered performer credits for a library item.
func (r *PerformerRepository) GetCredits(ctx context.Context, itemID int64) ([]models.Credit, error) {
	query := `SELECT p.id, p.foreign_id, p.name, p.gender, c.character, c.sort_order
		FROM credits c JOIN performers p ON p.id = c.performer_id
		WHERE c.item_id = $1 ORDER BY c.sort_order, p.name`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []models.Credit
	for rows.Next() {
		var c models.Credit
		if err := rows.Scan(&c.Performer.ID, &c.Performer.ForeignID, &c.Performer.Name,
			&c.Performer.Gender, &c.Character, &c.SortOrder); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// SetCredits replaces the credit list for an item.
func (r *PerformerRepository) SetCredits(ctx context.Context, itemID int64, credits []models.Credit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credits WHERE item_id = $1`, itemID); err != nil {
		return err
	}
	for _, c := range credits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credits (item_id, performer_id, character, sort_order) VALUES ($1, $2, $3, $4)`,
			itemID, c.Performer.ID, c.Character, c.SortOrder); err != nil {
			return fmt.Errorf("credit %s: %w", c.Performer.Name, err)
		}
	}
	return tx.Commit()
}
