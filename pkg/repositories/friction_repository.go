package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// Friction sort orders.
const (
	FrictionSortVotes  = "votes"
	FrictionSortRecent = "recent"
	FrictionSortImpact = "impact"
)

var frictionOrderBy = map[string]string{
	FrictionSortVotes:  "f.votes DESC, f.created_at DESC",
	FrictionSortRecent: "f.created_at DESC",
	FrictionSortImpact: "f.impact_score DESC NULLS LAST, f.created_at DESC",
}

// IsValidFrictionSort reports whether sort names a supported order.
func IsValidFrictionSort(sort string) bool {
	_, ok := frictionOrderBy[sort]
	return ok
}

// FrictionFilter narrows List. Empty strings mean "any"; an empty Sort means votes.
type FrictionFilter struct {
	Status   string
	Category string
	Sort     string
}

// FrictionRepository defines the interface for friction data access.
type FrictionRepository interface {
	List(ctx context.Context, filter FrictionFilter) ([]*models.Friction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Friction, error)
	Create(ctx context.Context, f *models.Friction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, impactScore *int) (*models.Friction, error)
	// AddVote records one vote per (friction, user) and bumps the counter.
	// Returns false when the user had already voted.
	AddVote(ctx context.Context, frictionID, userID uuid.UUID) (bool, error)
}

type frictionRepository struct {
	db *database.DB
}

// NewFrictionRepository creates a new friction repository.
func NewFrictionRepository(db *database.DB) FrictionRepository {
	return &frictionRepository{db: db}
}

const frictionSelect = `
	SELECT f.id, f.title, f.description, f.category, f.frequency, f.impact_score,
	       f.status, f.submitted_by, f.votes, f.created_at, f.updated_at, u.name
	FROM frictions f
	JOIN users u ON u.id = f.submitted_by`

func scanFriction(row pgx.Row) (*models.Friction, error) {
	var f models.Friction
	var submitterName string
	err := row.Scan(&f.ID, &f.Title, &f.Description, &f.Category, &f.Frequency, &f.ImpactScore,
		&f.Status, &f.SubmittedBy, &f.Votes, &f.CreatedAt, &f.UpdatedAt, &submitterName)
	if err != nil {
		return nil, err
	}
	f.Submitter = &models.UserRef{ID: f.SubmittedBy, Name: submitterName}
	return &f, nil
}

func (r *frictionRepository) List(ctx context.Context, filter FrictionFilter) ([]*models.Friction, error) {
	sort := filter.Sort
	if sort == "" {
		sort = FrictionSortVotes
	}
	orderBy, ok := frictionOrderBy[sort]
	if !ok {
		return nil, apperrors.NewValidationError("sort", "must be one of: votes recent impact")
	}

	query := frictionSelect + `
		WHERE ($1 = '' OR f.status = $1) AND ($2 = '' OR f.category = $2)
		ORDER BY ` + orderBy

	rows, err := r.db.Conn(ctx).Query(ctx, query, filter.Status, filter.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list frictions: %w", err)
	}
	defer rows.Close()

	frictions := make([]*models.Friction, 0)
	for rows.Next() {
		f, err := scanFriction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friction: %w", err)
		}
		frictions = append(frictions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frictions: %w", err)
	}
	return frictions, nil
}

func (r *frictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	f, err := scanFriction(r.db.Conn(ctx).QueryRow(ctx, frictionSelect+` WHERE f.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friction: %w", err)
	}
	return f, nil
}

func (r *frictionRepository) Create(ctx context.Context, f *models.Friction) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO frictions (title, description, category, frequency, status, submitted_by, votes)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING id, votes, created_at, updated_at`,
		f.Title, f.Description, f.Category, f.Frequency, f.Status, f.SubmittedBy).
		Scan(&f.ID, &f.Votes, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friction: %w", err)
	}
	return nil
}

func (r *frictionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, impactScore *int) (*models.Friction, error) {
	q := r.db.Conn(ctx)
	tag, err := q.Exec(ctx, `
		UPDATE frictions
		SET status = $2, impact_score = COALESCE($3, impact_score), updated_at = now()
		WHERE id = $1`,
		id, status, impactScore)
	if err != nil {
		return nil, fmt.Errorf("failed to update friction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *frictionRepository) AddVote(ctx context.Context, frictionID, userID uuid.UUID) (bool, error) {
	var voted bool
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.Conn(ctx)
		tag, err := q.Exec(ctx, `
			INSERT INTO friction_votes (friction_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			frictionID, userID)
		if err != nil {
			if database.IsPgError(err, database.ForeignKeyViolation) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to record vote: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		voted = true
		if _, err := q.Exec(ctx, `UPDATE frictions SET votes = votes + 1 WHERE id = $1`, frictionID); err != nil {
			return fmt.Errorf("failed to increment votes: %w", err)
		}
		return nil
	})
	return voted, err
}

var _ FrictionRepository = (*frictionRepository)(nil)
