package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// HomeHandler serves the home page previews.
type HomeHandler struct {
	homeService services.HomeService
	logger      *zap.Logger
}

// NewHomeHandler creates a new home handler.
func NewHomeHandler(homeService services.HomeService, logger *zap.Logger) *HomeHandler {
	return &HomeHandler{homeService: homeService, logger: logger}
}

// RegisterRoutes registers the home handler's routes on the given mux.
func (h *HomeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/home", authMiddleware.RequireAuth(h.Get))
}

// Get handles GET /api/home
func (h *HomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	preview, err := h.homeService.Get(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, preview); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
