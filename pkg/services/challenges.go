package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// CreateChallengeInput is the body of POST /api/challenges.
type CreateChallengeInput struct {
	Title        string  `json:"title" validate:"required,min=3,max=200"`
	Description  string  `json:"description" validate:"required,min=10,max=2000"`
	WhyItMatters *string `json:"why_it_matters" validate:"omitempty,max=2000"`
	VideoURL     *string `json:"video_url" validate:"omitempty,url,max=2048"`
	StartDate    string  `json:"start_date" validate:"required,isodate"`
	EndDate      string  `json:"end_date" validate:"required,isodate"`
}

// ChallengeLists splits the missions page into open and finished challenges.
type ChallengeLists struct {
	Active []*models.Challenge `json:"active"`
	Past   []*models.Challenge `json:"past"`
}

// ChallengeService manages missions.
type ChallengeService interface {
	// ListActive returns active challenges whose window contains today.
	ListActive(ctx context.Context) ([]*models.Challenge, error)
	// ListAll returns published challenges split into active and past.
	ListAll(ctx context.Context) (*ChallengeLists, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	// Create requires a moderator. New challenges are always active.
	Create(ctx context.Context, input *CreateChallengeInput) (*models.Challenge, error)
}

type challengeService struct {
	repo   repositories.ChallengeRepository
	clock  Clock
	logger *zap.Logger
}

// NewChallengeService creates a new challenge service.
func NewChallengeService(repo repositories.ChallengeRepository, clock Clock, logger *zap.Logger) ChallengeService {
	return &challengeService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

func (s *challengeService) ListActive(ctx context.Context) ([]*models.Challenge, error) {
	return s.repo.ListActive(ctx, s.clock.today(), 0)
}

func (s *challengeService) ListAll(ctx context.Context) (*ChallengeLists, error) {
	all, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	today := s.clock.today()
	lists := &ChallengeLists{
		Active: make([]*models.Challenge, 0),
		Past:   make([]*models.Challenge, 0),
	}
	for _, c := range all {
		if c.Status == models.ChallengeActive && !c.HasEnded(today) {
			lists.Active = append(lists.Active, c)
		} else {
			lists.Past = append(lists.Past, c)
		}
	}
	return lists, nil
}

func (s *challengeService) Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *challengeService) Create(ctx context.Context, input *CreateChallengeInput) (*models.Challenge, error) {
	caller, err := auth.RequireModerator(ctx)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.EndDate < input.StartDate {
		return nil, apperrors.NewDomainError("end date must be on or after start date")
	}

	c := &models.Challenge{
		Title:        input.Title,
		Description:  input.Description,
		WhyItMatters: input.WhyItMatters,
		VideoURL:     input.VideoURL,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Status:       models.ChallengeActive,
		CreatedBy:    caller.ID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Created challenge",
		zap.String("challenge_id", c.ID.String()),
		zap.String("created_by", caller.ID.String()))
	return c, nil
}

var _ ChallengeService = (*challengeService)(nil)
