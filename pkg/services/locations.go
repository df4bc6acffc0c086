package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// CreateLocationInput is the body of POST /api/locations.
type CreateLocationInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	TotalPeople int    `json:"total_people" validate:"min=1"`
}

// LocationService manages offices and their headcount.
type LocationService interface {
	List(ctx context.Context) ([]*models.Location, error)
	// Create requires a moderator. Duplicate names are apperrors.ErrConflict.
	Create(ctx context.Context, input *CreateLocationInput) (*models.Location, error)
	// Seed creates or updates locations by name. Used by the admin CLI.
	Seed(ctx context.Context, inputs []CreateLocationInput) (int, error)
}

type locationService struct {
	repo        repositories.LocationRepository
	leaderboard LeaderboardService
	logger      *zap.Logger
}

// NewLocationService creates a new location service.
func NewLocationService(repo repositories.LocationRepository, leaderboard LeaderboardService, logger *zap.Logger) LocationService {
	return &locationService{
		repo:        repo,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

func (s *locationService) List(ctx context.Context) ([]*models.Location, error) {
	return s.repo.List(ctx)
}

func (s *locationService) Create(ctx context.Context, input *CreateLocationInput) (*models.Location, error) {
	if _, err := auth.RequireModerator(ctx); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	loc := &models.Location{
		Name:        input.Name,
		TotalPeople: input.TotalPeople,
	}
	if err := s.repo.Create(ctx, loc); err != nil {
		return nil, err
	}

	s.leaderboard.Invalidate(ctx)
	s.logger.Info("Created location", zap.String("location_id", loc.ID.String()), zap.String("name", loc.Name))
	return loc, nil
}

func (s *locationService) Seed(ctx context.Context, inputs []CreateLocationInput) (int, error) {
	for i := range inputs {
		inputs[i].Name = strings.TrimSpace(inputs[i].Name)
		if err := validation.Struct(&inputs[i]); err != nil {
			return i, err
		}
		loc := &models.Location{
			Name:        inputs[i].Name,
			TotalPeople: inputs[i].TotalPeople,
		}
		if err := s.repo.Upsert(ctx, loc); err != nil {
			return i, err
		}
	}
	s.leaderboard.Invalidate(ctx)
	return len(inputs), nil
}

var _ LocationService = (*locationService)(nil)
