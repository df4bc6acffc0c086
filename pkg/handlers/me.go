package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// MeHandler serves the caller's own user record.
type MeHandler struct {
	userService services.UserService
	logger      *zap.Logger
}

// NewMeHandler creates a new me handler.
func NewMeHandler(userService services.UserService, logger *zap.Logger) *MeHandler {
	return &MeHandler{userService: userService, logger: logger}
}

// RegisterRoutes registers the me handler's routes on the given mux.
func (h *MeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/me", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/me", authMiddleware.RequireAuth(h.Update))
}

// Get handles GET /api/me
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/me. Only name and home location can change.
func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
