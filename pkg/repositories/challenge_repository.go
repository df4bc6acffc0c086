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

// ChallengeRepository defines the interface for challenge data access.
// Dates are passed and returned as YYYY-MM-DD strings.
type ChallengeRepository interface {
	// ListActive returns active challenges whose window contains today, newest first.
	ListActive(ctx context.Context, today string, limit int) ([]*models.Challenge, error)
	// ListPublished returns active and completed challenges, latest start first.
	ListPublished(ctx context.Context) ([]*models.Challenge, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	Create(ctx context.Context, c *models.Challenge) error
}

type challengeRepository struct {
	db *database.DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *database.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

const challengeColumns = `id, title, description, why_it_matters, video_url,
	start_date::text, end_date::text, status, created_by, created_at`

func scanChallenge(row pgx.Row) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.WhyItMatters, &c.VideoURL,
		&c.StartDate, &c.EndDate, &c.Status, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectChallenges(rows pgx.Rows) ([]*models.Challenge, error) {
	defer rows.Close()
	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return challenges, nil
}

func (r *challengeRepository) ListActive(ctx context.Context, today string, limit int) ([]*models.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE status = 'active' AND start_date <= $1::date AND end_date >= $1::date
		ORDER BY created_at DESC`
	args := []any{today}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}
	return collectChallenges(rows)
}

func (r *challengeRepository) ListPublished(ctx context.Context) ([]*models.Challenge, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges
		WHERE status IN ('active', 'completed')
		ORDER BY start_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return collectChallenges(rows)
}

func (r *challengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	c, err := scanChallenge(r.db.Conn(ctx).QueryRow(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (r *challengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO challenges (title, description, why_it_matters, video_url, start_date, end_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8)
		RETURNING id, created_at`,
		c.Title, c.Description, c.WhyItMatters, c.VideoURL, c.StartDate, c.EndDate, c.Status, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

var _ ChallengeRepository = (*challengeRepository)(nil)
