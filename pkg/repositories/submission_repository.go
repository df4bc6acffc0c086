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

// SubmissionFilter narrows List. Zero values mean "any".
type SubmissionFilter struct {
	ChallengeID *uuid.UUID
	Status      string
}

// SubmissionRepository defines the interface for submission data access.
type SubmissionRepository interface {
	// Create inserts a submission. A second submission by the same user to the
	// same challenge returns apperrors.ErrConflict.
	Create(ctx context.Context, s *models.Submission) error
	List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, feedback *string) (*models.Submission, error)
	// CountApprovedByLocation counts approved submissions grouped by the submission's own location.
	CountApprovedByLocation(ctx context.Context) (map[uuid.UUID]int, error)
}

type submissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *database.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

const submissionSelect = `
	SELECT s.id, s.challenge_id, s.user_id, s.location_id, s.content, s.file_url,
	       s.status, s.feedback, s.created_at, s.updated_at,
	       u.name, c.title
	FROM submissions s
	JOIN users u ON u.id = s.user_id
	JOIN challenges c ON c.id = s.challenge_id`

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	var userName, challengeTitle string
	err := row.Scan(&s.ID, &s.ChallengeID, &s.UserID, &s.LocationID, &s.Content, &s.FileURL,
		&s.Status, &s.Feedback, &s.CreatedAt, &s.UpdatedAt, &userName, &challengeTitle)
	if err != nil {
		return nil, err
	}
	s.User = &models.UserRef{ID: s.UserID, Name: userName}
	s.Challenge = &models.ChallengeRef{ID: s.ChallengeID, Title: challengeTitle}
	return &s, nil
}

func (r *submissionRepository) Create(ctx context.Context, s *models.Submission) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO submissions (challenge_id, user_id, location_id, content, file_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.ChallengeID, s.UserID, s.LocationID, s.Content, s.FileURL, s.Status).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsPgError(err, database.UniqueViolation) {
			return fmt.Errorf("submission already exists for this challenge: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error) {
	query := submissionSelect + ` WHERE ($1::uuid IS NULL OR s.challenge_id = $1)
		AND ($2 = '' OR s.status = $2)
		ORDER BY s.created_at DESC`

	rows, err := r.db.Conn(ctx).Query(ctx, query, filter.ChallengeID, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return submissions, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, feedback *string) (*models.Submission, error) {
	q := r.db.Conn(ctx)
	tag, err := q.Exec(ctx, `
		UPDATE submissions
		SET status = $2, feedback = COALESCE($3, feedback), updated_at = now()
		WHERE id = $1`,
		id, status, feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrNotFound
	}

	s, err := scanSubmission(q.QueryRow(ctx, submissionSelect+` WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload submission: %w", err)
	}
	return s, nil
}

func (r *submissionRepository) CountApprovedByLocation(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT location_id, count(*)
		FROM submissions
		WHERE status = 'approved'
		GROUP BY location_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var locationID uuid.UUID
		var n int
		if err := rows.Scan(&locationID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan submission count: %w", err)
		}
		counts[locationID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission counts: %w", err)
	}
	return counts, nil
}

var _ SubmissionRepository = (*submissionRepository)(nil)
