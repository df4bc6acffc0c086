package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/logging"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/storage"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// CreateSubmissionInput is the body of POST /api/submissions. FileURL carries
// the path returned by POST /api/uploads; responses replace it with a fresh
// download URL.
type CreateSubmissionInput struct {
	ChallengeID string  `json:"challenge_id" validate:"required,uuid"`
	LocationID  string  `json:"location_id" validate:"required,uuid"`
	Content     string  `json:"content" validate:"required,notblank,max=5000"`
	FileURL     *string `json:"file_url" validate:"omitempty,max=2048"`
}

// UpdateSubmissionInput is the body of PUT /api/submissions/{id}.
type UpdateSubmissionInput struct {
	Status   string  `json:"status" validate:"required,oneof=approved rejected"`
	Feedback *string `json:"feedback" validate:"omitempty,max=1000"`
}

// SubmissionService manages work submitted against challenges.
type SubmissionService interface {
	// Create records the caller's submission. The challenge must exist and not
	// have ended, the location must exist, and the caller may submit once per challenge.
	Create(ctx context.Context, input *CreateSubmissionInput) (*models.Submission, error)
	List(ctx context.Context, challengeID *uuid.UUID) ([]*models.Submission, error)
	// ListPending requires a moderator.
	ListPending(ctx context.Context) ([]*models.Submission, error)
	// UpdateStatus requires a moderator.
	UpdateStatus(ctx context.Context, id uuid.UUID, input *UpdateSubmissionInput) (*models.Submission, error)
}

type submissionService struct {
	repo        repositories.SubmissionRepository
	challenges  repositories.ChallengeRepository
	locations   repositories.LocationRepository
	leaderboard LeaderboardService
	files       storage.BlobStore
	fileURLTTL  time.Duration
	clock       Clock
	logger      *zap.Logger
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(
	repo repositories.SubmissionRepository,
	challenges repositories.ChallengeRepository,
	locations repositories.LocationRepository,
	leaderboard LeaderboardService,
	files storage.BlobStore,
	fileURLTTL time.Duration,
	clock Clock,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		repo:        repo,
		challenges:  challenges,
		locations:   locations,
		leaderboard: leaderboard,
		files:       files,
		fileURLTTL:  fileURLTTL,
		clock:       clock,
		logger:      logger,
	}
}

func (s *submissionService) Create(ctx context.Context, input *CreateSubmissionInput) (sub *models.Submission, err error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	fileKey, err := attachmentKey(caller.ID, input.FileURL)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "SubmissionService.Create",
		attribute.String("challenge_id", input.ChallengeID))
	defer func() { endSpan(span, err) }()

	challengeID := uuid.MustParse(input.ChallengeID)
	locationID := uuid.MustParse(input.LocationID)

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewDomainError("challenge not found")
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if challenge.HasEnded(s.clock.today()) {
		return nil, apperrors.NewDomainError("challenge has ended")
	}

	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewDomainError("location not found")
		}
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	sub = &models.Submission{
		ChallengeID: challengeID,
		UserID:      caller.ID,
		LocationID:  locationID,
		Content:     input.Content,
		FileURL:     fileKey,
		Status:      models.StatusPending,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Created submission",
		zap.String("submission_id", sub.ID.String()),
		zap.String("challenge_id", challengeID.String()),
		zap.String("user_id", caller.ID.String()))
	return s.withAttachmentURL(ctx, sub), nil
}

func (s *submissionService) List(ctx context.Context, challengeID *uuid.UUID) ([]*models.Submission, error) {
	subs, err := s.repo.List(ctx, repositories.SubmissionFilter{ChallengeID: challengeID})
	if err != nil {
		return nil, err
	}
	return s.withAttachmentURLs(ctx, subs), nil
}

func (s *submissionService) ListPending(ctx context.Context) ([]*models.Submission, error) {
	if _, err := auth.RequireModerator(ctx); err != nil {
		return nil, err
	}
	subs, err := s.repo.List(ctx, repositories.SubmissionFilter{Status: models.StatusPending})
	if err != nil {
		return nil, err
	}
	return s.withAttachmentURLs(ctx, subs), nil
}

func (s *submissionService) UpdateStatus(ctx context.Context, id uuid.UUID, input *UpdateSubmissionInput) (*models.Submission, error) {
	caller, err := auth.RequireModerator(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	sub, err := s.repo.UpdateStatus(ctx, id, input.Status, input.Feedback)
	if err != nil {
		return nil, err
	}

	s.leaderboard.Invalidate(ctx)
	s.logger.Info("Reviewed submission",
		zap.String("submission_id", id.String()),
		zap.String("status", input.Status),
		zap.String("moderator_id", caller.ID.String()))
	return s.withAttachmentURL(ctx, sub), nil
}

// attachmentKey checks that an attachment path names an object the caller
// uploaded. An empty value means no attachment.
func attachmentKey(owner uuid.UUID, fileURL *string) (*string, error) {
	if fileURL == nil {
		return nil, nil
	}
	key := strings.TrimSpace(*fileURL)
	if key == "" {
		return nil, nil
	}
	if !strings.HasPrefix(key, owner.String()+"/") || strings.Contains(key, "..") {
		return nil, apperrors.NewValidationError("file_url", "must be a path returned by the upload endpoint")
	}
	return &key, nil
}

func (s *submissionService) withAttachmentURLs(ctx context.Context, subs []*models.Submission) []*models.Submission {
	out := make([]*models.Submission, len(subs))
	for i, sub := range subs {
		out[i] = s.withAttachmentURL(ctx, sub)
	}
	return out
}

// withAttachmentURL returns a copy of sub whose stored attachment path is
// replaced by a download URL signed now. Rows that already hold an absolute
// URL are returned unchanged.
func (s *submissionService) withAttachmentURL(ctx context.Context, sub *models.Submission) *models.Submission {
	if sub == nil || sub.FileURL == nil || strings.Contains(*sub.FileURL, "://") {
		return sub
	}
	signed := *sub
	url, err := s.files.SignedURL(ctx, *sub.FileURL, s.fileURLTTL)
	if err != nil {
		s.logger.Warn("Failed to sign attachment URL",
			zap.String("submission_id", sub.ID.String()),
			zap.String("error", logging.SanitizeError(err)))
		signed.FileURL = nil
		return &signed
	}
	signed.FileURL = &url
	return &signed
}

var _ SubmissionService = (*submissionService)(nil)
