package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// CreateUseCaseInput is the body of POST /api/use-cases.
type CreateUseCaseInput struct {
	Title       string               `json:"title" validate:"required,min=3,max=200"`
	Description string               `json:"description" validate:"required,min=10,max=5000"`
	Category    string               `json:"category" validate:"required,notblank,max=100"`
	Complexity  string               `json:"complexity" validate:"required,oneof=beginner intermediate advanced"`
	Tools       []string             `json:"tools" validate:"required,min=1,max=10,dive,required,notblank,max=50"`
	Steps       []models.UseCaseStep `json:"steps" validate:"required,min=1,max=20,dive"`
	ImageURL    *string              `json:"image_url" validate:"omitempty,max=2048"`
}

// UpdateUseCaseInput is the body of PUT /api/use-cases/{id}. At least one field is required.
type UpdateUseCaseInput struct {
	Status     *string `json:"status" validate:"omitempty,oneof=approved rejected"`
	IsFeatured *bool   `json:"is_featured"`
}

// UseCaseService manages shared AI use-cases.
type UseCaseService interface {
	// List defaults to approved use-cases.
	List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error)
	// ListPending requires a moderator.
	ListPending(ctx context.Context) ([]*models.UseCase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.UseCase, error)
	// GetFeatured returns apperrors.ErrNotFound when nothing is featured.
	GetFeatured(ctx context.Context) (*models.UseCase, error)
	Create(ctx context.Context, input *CreateUseCaseInput) (*models.UseCase, error)
	// Update requires a moderator. Featuring a use-case unfeatures every other one.
	Update(ctx context.Context, id uuid.UUID, input *UpdateUseCaseInput) (*models.UseCase, error)
}

type useCaseService struct {
	repo   repositories.UseCaseRepository
	logger *zap.Logger
}

// NewUseCaseService creates a new use-case service.
func NewUseCaseService(repo repositories.UseCaseRepository, logger *zap.Logger) UseCaseService {
	return &useCaseService{
		repo:   repo,
		logger: logger,
	}
}

func (s *useCaseService) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	if filter.Status == "" {
		filter.Status = models.StatusApproved
	}
	return s.repo.List(ctx, filter)
}

func (s *useCaseService) ListPending(ctx context.Context) ([]*models.UseCase, error) {
	if _, err := auth.RequireModerator(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, repositories.UseCaseFilter{Status: models.StatusPending})
}

func (s *useCaseService) Get(ctx context.Context, id uuid.UUID) (*models.UseCase, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *useCaseService) GetFeatured(ctx context.Context) (*models.UseCase, error) {
	return s.repo.GetFeatured(ctx)
}

func (s *useCaseService) Create(ctx context.Context, input *CreateUseCaseInput) (*models.UseCase, error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	for i, t := range input.Tools {
		input.Tools[i] = strings.TrimSpace(t)
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	uc := &models.UseCase{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Complexity:  input.Complexity,
		Tools:       input.Tools,
		Steps:       input.Steps,
		ImageURL:    input.ImageURL,
		Status:      models.StatusPending,
		SubmittedBy: caller.ID,
	}
	if err := s.repo.Create(ctx, uc); err != nil {
		return nil, err
	}

	s.logger.Info("Created use-case",
		zap.String("use_case_id", uc.ID.String()),
		zap.String("user_id", caller.ID.String()))
	return uc, nil
}

func (s *useCaseService) Update(ctx context.Context, id uuid.UUID, input *UpdateUseCaseInput) (uc *models.UseCase, err error) {
	caller, err := auth.RequireModerator(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.Status == nil && input.IsFeatured == nil {
		return nil, apperrors.NewValidationError("", "at least one of status or is_featured is required")
	}

	ctx, span := tracer.StartSpan(ctx, "UseCaseService.Update",
		attribute.String("use_case_id", id.String()))
	defer func() { endSpan(span, err) }()

	uc, err = s.repo.Update(ctx, id, repositories.UseCaseUpdate{
		Status:     input.Status,
		IsFeatured: input.IsFeatured,
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("use_case_id", id.String()),
		zap.String("moderator_id", caller.ID.String()),
	}
	if input.Status != nil {
		fields = append(fields, zap.String("status", *input.Status))
	}
	if input.IsFeatured != nil {
		fields = append(fields, zap.Bool("is_featured", *input.IsFeatured))
	}
	s.logger.Info("Updated use-case", fields...)
	return uc, nil
}

var _ UseCaseService = (*useCaseService)(nil)
