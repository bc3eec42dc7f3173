// Package identification matches parsed release names to library items.
package identification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/scenevault/scenevault/internal/models"
	"github.com/scenevault/scenevault/internal/parser"
)

// ItemFinder is the item-store slice the identifier queries.
type ItemFinder interface {
	FindMovie(ctx context.Context, cleanTitle string, year int) (*models.LibraryItem, error)
	FindScene(ctx context.Context, studioSlug string, releaseDate time.Time, cleanTitle string) (*models.LibraryItem, error)
}

// StudioFinder resolves studio slugs and ids to persisted studios.
type StudioFinder interface {
	GetBySlug(ctx context.Context, slug string) (*models.Studio, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Studio, error)
}

// CreditsFinder loads the ordered performer credits of an item.
type CreditsFinder interface {
	GetCredits(ctx context.Context, itemID int64) ([]models.Credit, error)
}

// FileFinder loads the file record an item currently points at.
type FileFinder interface {
	GetByID(ctx context.Context, id int64) (*models.FileRecord, error)
}

// ExclusionChecker answers whether a foreign id was deliberately removed.
type ExclusionChecker interface {
	IsExcluded(ctx context.Context, foreignID string) (bool, error)
}

// Service resolves parsed names against the library. A nil item with nil
// error means no match; a returned item with ID 0 is a proposed new entry
// the caller may create. Matched items come back with their studio,
// credits, and current file record loaded.
type Service struct {
	items      ItemFinder
	studios    StudioFinder
	credits    CreditsFinder
	files      FileFinder
	exclusions ExclusionChecker
}

func NewService(items ItemFinder, studios StudioFinder, credits CreditsFinder,
	files FileFinder, exclusions ExclusionChecker,
) *Service {
	return &Service{items: items, studios: studios, credits: credits, files: files, exclusions: exclusions}
}

func (s *Service) Identify(ctx context.Context, path string, parsed *parser.ParsedInfo) (*models.LibraryItem, error) {
	if parsed == nil {
		return nil, nil
	}
	if parsed.StudioTitle != "" && parsed.ReleaseDate != nil {
		return s.identifyScene(ctx, parsed)
	}
	if parsed.Title != "" {
		return s.identifyMovie(ctx, parsed)
	}
	return nil, nil
}

func (s *Service) identifyMovie(ctx context.Context, parsed *parser.ParsedInfo) (*models.LibraryItem, error) {
	item, err := s.items.FindMovie(ctx, parsed.CleanTitle, parsed.Year)
	if err != nil {
		return nil, fmt.Errorf("movie lookup %q: %w", parsed.CleanTitle, err)
	}
	if item == nil {
		log.Debug().Str("title", parsed.Title).Int("year", parsed.Year).Msg("identify: no movie match")
		// Movies without a library entry stay unmapped; there is not
		// enough signal in a bare title to propose one.
		return nil, nil
	}
	if err := s.hydrate(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// identifyScene matches a well-formed studio plus date name, proposing a
// new item when the library has no entry yet.
func (s *Service) identifyScene(ctx context.Context, parsed *parser.ParsedInfo) (*models.LibraryItem, error) {
	slug := parser.CleanTitle(parsed.StudioTitle)
	date := *parsed.ReleaseDate

	item, err := s.items.FindScene(ctx, slug, date, parsed.CleanTitle)
	if err != nil {
		return nil, fmt.Errorf("scene lookup %s/%s: %w", slug, date.Format("2006-01-02"), err)
	}
	if item != nil {
		if err := s.hydrate(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	}

	foreignID := sceneForeignID(slug, date, parsed.CleanTitle)
	excluded, err := s.exclusions.IsExcluded(ctx, foreignID)
	if err != nil {
		return nil, fmt.Errorf("exclusion check %s: %w", foreignID, err)
	}
	if excluded {
		log.Debug().Str("foreign_id", foreignID).Msg("identify: scene is excluded from import")
		return nil, nil
	}

	studio, err := s.studios.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("studio lookup %s: %w", slug, err)
	}
	if studio == nil {
		studio = &models.Studio{Title: parsed.StudioTitle, Slug: slug}
	}

	proposed := &models.LibraryItem{
		ForeignID:   foreignID,
		Title:       parsed.Title,
		SortTitle:   parsed.CleanTitle,
		Year:        date.Year(),
		ReleaseDate: &date,
		ItemType:    models.ItemTypeScene,
		Monitored:   true,
		Studio:      studio,
	}
	if studio.ID != uuid.Nil {
		id := studio.ID
		proposed.StudioID = &id
	}
	return proposed, nil
}

// hydrate loads the relations matching leaves nil: the studio the folder
// tokens render, the credits the performer tokens render, and the file
// record the existing-file check compares against. A hydration failure
// fails the match; importing with half-rendered names would scatter files.
func (s *Service) hydrate(ctx context.Context, item *models.LibraryItem) error {
	if item.Studio == nil && item.StudioID != nil {
		studio, err := s.studios.GetByID(ctx, *item.StudioID)
		if err != nil {
			return fmt.Errorf("studio %s for item %d: %w", item.StudioID, item.ID, err)
		}
		item.Studio = studio
	}
	if item.Credits == nil && item.ItemType == models.ItemTypeScene {
		credits, err := s.credits.GetCredits(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("credits for item %d: %w", item.ID, err)
		}
		item.Credits = credits
	}
	if item.File == nil && item.HasFile() {
		file, err := s.files.GetByID(ctx, item.FileID)
		if err != nil {
			return fmt.Errorf("file %d for item %d: %w", item.FileID, item.ID, err)
		}
		item.File = file
	}
	return nil
}

// sceneForeignID is the stable identity for scenes discovered from disk,
// stable across scans so exclusions keep working.
func sceneForeignID(slug string, date time.Time, cleanTitle string) string {
	return fmt.Sprintf("local:%s:%s:%s", slug, date.Format("2006-01-02"), cleanTitle)
}
