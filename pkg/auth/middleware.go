package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// UserLookup loads the user row bound to a token subject.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Middleware provides HTTP authentication middleware.
// It is thin and delegates token validation to AuthService.
type Middleware struct {
	authService       AuthService
	users             UserLookup
	allowRoleOverride bool
	logger            *zap.Logger
}

// NewMiddleware creates a new auth middleware. allowRoleOverride must only be true
// outside production.
func NewMiddleware(authService AuthService, users UserLookup, allowRoleOverride bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService:       authService,
		users:             users,
		allowRoleOverride: allowRoleOverride,
		logger:            logger,
	}
}

// Authenticate resolves the caller of r. A valid token whose subject has no user
// row is unauthenticated.
func (m *Middleware) Authenticate(r *http.Request) (*models.User, *Claims, error) {
	claims, _, err := m.authService.ValidateRequest(r)
	if err != nil {
		return nil, nil, apperrors.ErrUnauthenticated
	}

	userID, err := claims.UserID()
	if err != nil {
		m.logger.Debug("Token subject is not a user id", zap.Error(err))
		return nil, nil, apperrors.ErrUnauthenticated
	}

	user, err := m.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrUnauthenticated
		}
		return nil, nil, err
	}

	if m.allowRoleOverride {
		if cookie, err := r.Cookie(ViewRoleCookieName); err == nil && models.IsValidRole(cookie.Value) {
			effective := *user
			effective.Role = cookie.Value
			user = &effective
		}
	}

	return user, claims, nil
}

// RequireAuth stores the resolved caller and claims in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := m.Authenticate(r)
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnauthenticated) {
				m.logger.Error("Failed to load user", zap.Error(err))
				m.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}
			m.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = WithUser(ctx, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireModerator wraps RequireAuth and answers 403 for non-moderators.
func (m *Middleware) RequireModerator(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())
		if !user.IsModerator() {
			m.logger.Warn("Non-moderator attempted to access moderator endpoint",
				zap.String("user_id", user.ID.String()),
				zap.String("path", r.URL.Path))
			m.writeError(w, http.StatusForbidden, "forbidden", "Moderator role required")
			return
		}
		next(w, r)
	})
}

func (m *Middleware) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
