package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// LocationHandler handles office location and leaderboard HTTP requests.
type LocationHandler struct {
	locationService    services.LocationService
	leaderboardService services.LeaderboardService
	logger             *zap.Logger
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(
	locationService services.LocationService,
	leaderboardService services.LeaderboardService,
	logger *zap.Logger,
) *LocationHandler {
	return &LocationHandler{
		locationService:    locationService,
		leaderboardService: leaderboardService,
		logger:             logger,
	}
}

// RegisterRoutes registers the location handler's routes on the given mux.
func (h *LocationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/locations", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/locations", authMiddleware.RequireModerator(h.Create))
	mux.HandleFunc("GET /api/leaderboard", authMiddleware.RequireAuth(h.Leaderboard))
}

// List handles GET /api/locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locationService.List(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, locations); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/locations
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLocationInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	location, err := h.locationService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, location); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Leaderboard handles GET /api/leaderboard
func (h *LocationHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.Get(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, entries); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
