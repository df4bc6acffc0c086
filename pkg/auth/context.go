package auth

import (
	"context"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// UserKey is the context key for the resolved caller.
	UserKey contextKey = "user"
)

// GetClaims retrieves JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// WithUser stores the resolved caller in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the caller stored by the auth middleware.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

// ResolveCaller returns the current user or apperrors.ErrUnauthenticated.
func ResolveCaller(ctx context.Context) (*models.User, error) {
	user, ok := GetUser(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return user, nil
}

// RequireModerator returns the current user, apperrors.ErrUnauthenticated when there is
// none, or apperrors.ErrForbidden when the caller is not a moderator.
func RequireModerator(ctx context.Context) (*models.User, error) {
	user, err := ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsModerator() {
		return nil, apperrors.ErrForbidden
	}
	return user, nil
}
