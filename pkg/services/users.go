package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/logging"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// ErrDomainNotAllowed is returned when a sign-in email is outside the allowed
// domain and not on the allow-list.
var ErrDomainNotAllowed = errors.New("email domain not allowed")

// UpdateProfileInput is the body of PUT /api/me. Role is never accepted.
type UpdateProfileInput struct {
	Name       *string `json:"name" validate:"omitempty,notblank,max=100"`
	LocationID *string `json:"location_id" validate:"omitempty,uuid"`
}

// UserService manages sign-in and profile updates.
type UserService interface {
	// SignIn applies the domain policy and creates the user on first sign-in.
	// Existing users are returned unchanged.
	SignIn(ctx context.Context, subject uuid.UUID, email string) (*models.User, error)
	// Me returns the caller.
	Me(ctx context.Context) (*models.User, error)
	// UpdateProfile changes the caller's display name or home location.
	UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*models.User, error)
	// SetRole is used by the admin CLI.
	SetRole(ctx context.Context, email, role string) (*models.User, error)
}

type userService struct {
	repo   repositories.UserRepository
	policy *auth.DomainPolicy
	logger *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repositories.UserRepository, policy *auth.DomainPolicy, logger *zap.Logger) UserService {
	return &userService{
		repo:   repo,
		policy: policy,
		logger: logger,
	}
}

func (s *userService) SignIn(ctx context.Context, subject uuid.UUID, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if !s.policy.Allows(email) {
		s.logger.Warn("Rejected sign-in outside allowed domain",
			zap.String("domain", logging.EmailDomain(email)))
		return nil, ErrDomainNotAllowed
	}

	user, created, err := s.repo.CreateIfAbsent(ctx, &models.User{
		ID:    subject,
		Email: email,
		Name:  models.DisplayNameFromEmail(email),
		Role:  models.RoleUser,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign in user: %w", err)
	}
	if created {
		s.logger.Info("Created user on first sign-in",
			zap.String("user_id", user.ID.String()),
			zap.String("domain", logging.EmailDomain(email)))
	}
	return user, nil
}

func (s *userService) Me(ctx context.Context) (*models.User, error) {
	return auth.ResolveCaller(ctx)
}

func (s *userService) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*models.User, error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		name = &trimmed
	}
	var locationID *uuid.UUID
	if input.LocationID != nil {
		id := uuid.MustParse(*input.LocationID)
		locationID = &id
	}

	return s.repo.UpdateProfile(ctx, caller.ID, name, locationID)
}

func (s *userService) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, apperrors.ErrInvalidRole
	}
	user, err := s.repo.SetRole(ctx, email, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Changed user role",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role))
	return user, nil
}

var _ UserService = (*userService)(nil)
