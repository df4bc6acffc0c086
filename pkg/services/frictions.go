package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// CreateFrictionInput is the body of POST /api/frictions.
type CreateFrictionInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
	Category    string `json:"category" validate:"required,notblank,max=100"`
	Frequency   string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
}

// UpdateFrictionInput is the body of PUT /api/frictions/{id}.
type UpdateFrictionInput struct {
	Status      string `json:"status" validate:"required,oneof=approved rejected resolved"`
	ImpactScore *int   `json:"impact_score" validate:"omitempty,min=1,max=10"`
}

// FrictionService manages reported workflow pain points.
type FrictionService interface {
	List(ctx context.Context, filter repositories.FrictionFilter) ([]*models.Friction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Friction, error)
	// ListPending requires a moderator.
	ListPending(ctx context.Context) ([]*models.Friction, error)
	Create(ctx context.Context, input *CreateFrictionInput) (*models.Friction, error)
	// Vote records the caller's vote once and returns the friction.
	Vote(ctx context.Context, id uuid.UUID) (*models.Friction, error)
	// UpdateStatus requires a moderator.
	UpdateStatus(ctx context.Context, id uuid.UUID, input *UpdateFrictionInput) (*models.Friction, error)
}

type frictionService struct {
	repo   repositories.FrictionRepository
	logger *zap.Logger
}

// NewFrictionService creates a new friction service.
func NewFrictionService(repo repositories.FrictionRepository, logger *zap.Logger) FrictionService {
	return &frictionService{
		repo:   repo,
		logger: logger,
	}
}

func (s *frictionService) List(ctx context.Context, filter repositories.FrictionFilter) ([]*models.Friction, error) {
	return s.repo.List(ctx, filter)
}

func (s *frictionService) Get(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *frictionService) ListPending(ctx context.Context) ([]*models.Friction, error) {
	if _, err := auth.RequireModerator(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, repositories.FrictionFilter{
		Status: models.StatusPending,
		Sort:   repositories.FrictionSortRecent,
	})
}

func (s *frictionService) Create(ctx context.Context, input *CreateFrictionInput) (*models.Friction, error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	f := &models.Friction{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Frequency:   input.Frequency,
		Status:      models.StatusPending,
		SubmittedBy: caller.ID,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("Created friction",
		zap.String("friction_id", f.ID.String()),
		zap.String("user_id", caller.ID.String()))
	return f, nil
}

func (s *frictionService) Vote(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}

	added, err := s.repo.AddVote(ctx, id, caller.ID)
	if err != nil {
		return nil, err
	}
	if !added {
		s.logger.Debug("Ignored repeat vote",
			zap.String("friction_id", id.String()),
			zap.String("user_id", caller.ID.String()))
	}
	return s.repo.GetByID(ctx, id)
}

func (s *frictionService) UpdateStatus(ctx context.Context, id uuid.UUID, input *UpdateFrictionInput) (*models.Friction, error) {
	caller, err := auth.RequireModerator(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	f, err := s.repo.UpdateStatus(ctx, id, input.Status, input.ImpactScore)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reviewed friction",
		zap.String("friction_id", id.String()),
		zap.String("status", input.Status),
		zap.String("moderator_id", caller.ID.String()))
	return f, nil
}

var _ FrictionService = (*frictionService)(nil)
