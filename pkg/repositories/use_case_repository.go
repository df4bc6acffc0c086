package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// Use-case sort orders.
const (
	UseCaseSortRecent = "recent"
	UseCaseSortTitle  = "title"
)

var useCaseOrderBy = map[string]string{
	UseCaseSortRecent: "uc.created_at DESC",
	UseCaseSortTitle:  "uc.title ASC, uc.created_at DESC",
}

// UseCaseFilter narrows List. Empty strings mean "any"; an empty Sort means recent.
type UseCaseFilter struct {
	Status   string
	Category string
	Tool     string
	Sort     string
}

// UseCaseUpdate carries the optional fields of a moderator update.
type UseCaseUpdate struct {
	Status     *string
	IsFeatured *bool
}

// UseCaseRepository defines the interface for use-case data access.
type UseCaseRepository interface {
	List(ctx context.Context, filter UseCaseFilter) ([]*models.UseCase, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.UseCase, error)
	GetFeatured(ctx context.Context) (*models.UseCase, error)
	Create(ctx context.Context, uc *models.UseCase) error
	// Update applies status and featured changes in one transaction. Featuring a
	// use-case clears the flag on every other row in the same atomic database call.
	// Only approved use-cases can be featured; any other status clears the flag.
	Update(ctx context.Context, id uuid.UUID, update UseCaseUpdate) (*models.UseCase, error)
}

type useCaseRepository struct {
	db *database.DB
}

// NewUseCaseRepository creates a new use-case repository.
func NewUseCaseRepository(db *database.DB) UseCaseRepository {
	return &useCaseRepository{db: db}
}

const useCaseSelect = `
	SELECT uc.id, uc.title, uc.description, uc.category, uc.complexity, uc.tools, uc.steps,
	       uc.image_url, uc.is_featured, uc.status, uc.submitted_by, uc.created_at, uc.updated_at, u.name
	FROM use_cases uc
	JOIN users u ON u.id = uc.submitted_by`

func scanUseCase(row pgx.Row) (*models.UseCase, error) {
	var uc models.UseCase
	var steps []byte
	var submitterName string
	err := row.Scan(&uc.ID, &uc.Title, &uc.Description, &uc.Category, &uc.Complexity, &uc.Tools, &steps,
		&uc.ImageURL, &uc.IsFeatured, &uc.Status, &uc.SubmittedBy, &uc.CreatedAt, &uc.UpdatedAt, &submitterName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &uc.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}
	if uc.Tools == nil {
		uc.Tools = []string{}
	}
	uc.Submitter = &models.UserRef{ID: uc.SubmittedBy, Name: submitterName}
	return &uc, nil
}

func (r *useCaseRepository) List(ctx context.Context, filter UseCaseFilter) ([]*models.UseCase, error) {
	sort := filter.Sort
	if sort == "" {
		sort = UseCaseSortRecent
	}
	orderBy, ok := useCaseOrderBy[sort]
	if !ok {
		return nil, apperrors.NewValidationError("sort", "must be one of: recent title")
	}

	query := useCaseSelect + `
		WHERE ($1 = '' OR uc.status = $1)
		  AND ($2 = '' OR uc.category = $2)
		  AND ($3 = '' OR $3 = ANY(uc.tools))
		ORDER BY ` + orderBy

	rows, err := r.db.Conn(ctx).Query(ctx, query, filter.Status, filter.Category, filter.Tool)
	if err != nil {
		return nil, fmt.Errorf("failed to list use-cases: %w", err)
	}
	defer rows.Close()

	useCases := make([]*models.UseCase, 0)
	for rows.Next() {
		uc, err := scanUseCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan use-case: %w", err)
		}
		useCases = append(useCases, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating use-cases: %w", err)
	}
	return useCases, nil
}

func (r *useCaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UseCase, error) {
	uc, err := scanUseCase(r.db.Conn(ctx).QueryRow(ctx, useCaseSelect+` WHERE uc.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get use-case: %w", err)
	}
	return uc, nil
}

func (r *useCaseRepository) GetFeatured(ctx context.Context) (*models.UseCase, error) {
	uc, err := scanUseCase(r.db.Conn(ctx).QueryRow(ctx, useCaseSelect+` WHERE uc.is_featured AND uc.status = 'approved'`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get featured use-case: %w", err)
	}
	return uc, nil
}

func (r *useCaseRepository) Create(ctx context.Context, uc *models.UseCase) error {
	steps, err := json.Marshal(uc.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}
	err = r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO use_cases (title, description, category, complexity, tools, steps, image_url, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
		RETURNING id, is_featured, created_at, updated_at`,
		uc.Title, uc.Description, uc.Category, uc.Complexity, uc.Tools, string(steps), uc.ImageURL, uc.Status, uc.SubmittedBy).
		Scan(&uc.ID, &uc.IsFeatured, &uc.CreatedAt, &uc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create use-case: %w", err)
	}
	return nil
}

func (r *useCaseRepository) Update(ctx context.Context, id uuid.UUID, update UseCaseUpdate) (*models.UseCase, error) {
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.Conn(ctx)

		if update.Status != nil {
			tag, err := q.Exec(ctx,
				`UPDATE use_cases
				 SET status = $2, is_featured = is_featured AND $2 = 'approved', updated_at = now()
				 WHERE id = $1`,
				id, *update.Status)
			if err != nil {
				return fmt.Errorf("failed to update use-case status: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.ErrNotFound
			}
		}

		if update.IsFeatured != nil {
			if *update.IsFeatured {
				var status string
				err := q.QueryRow(ctx, `SELECT status FROM use_cases WHERE id = $1 FOR UPDATE`, id).Scan(&status)
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.ErrNotFound
				}
				if err != nil {
					return fmt.Errorf("failed to read use-case status: %w", err)
				}
				if status != models.StatusApproved {
					return apperrors.NewDomainError("only approved use-cases can be featured")
				}

				var found bool
				if err := q.QueryRow(ctx, `SELECT set_featured_use_case($1)`, id).Scan(&found); err != nil {
					return fmt.Errorf("failed to feature use-case: %w", err)
				}
				if !found {
					return apperrors.ErrNotFound
				}
			} else {
				tag, err := q.Exec(ctx,
					`UPDATE use_cases SET is_featured = false, updated_at = now() WHERE id = $1`, id)
				if err != nil {
					return fmt.Errorf("failed to unfeature use-case: %w", err)
				}
				if tag.RowsAffected() == 0 {
					return apperrors.ErrNotFound
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

var _ UseCaseRepository = (*useCaseRepository)(nil)
