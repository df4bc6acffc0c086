package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// FrictionHandler handles friction (workflow pain point) HTTP requests.
type FrictionHandler struct {
	frictionService services.FrictionService
	logger          *zap.Logger
}

// NewFrictionHandler creates a new friction handler.
func NewFrictionHandler(frictionService services.FrictionService, logger *zap.Logger) *FrictionHandler {
	return &FrictionHandler{
		frictionService: frictionService,
		logger:          logger,
	}
}

// RegisterRoutes registers the friction handler's routes on the given mux.
func (h *FrictionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/frictions", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/frictions", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/frictions/pending", authMiddleware.RequireModerator(h.ListPending))
	mux.HandleFunc("GET /api/frictions/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/frictions/{id}/vote", authMiddleware.RequireAuth(h.Vote))
	mux.HandleFunc("PUT /api/frictions/{id}", authMiddleware.RequireModerator(h.Update))
}

// List handles GET /api/frictions?status=&category=&sort=
func (h *FrictionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	frictions, err := h.frictionService.List(r.Context(), repositories.FrictionFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, frictions); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListPending handles GET /api/frictions/pending
func (h *FrictionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	frictions, err := h.frictionService.ListPending(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, frictions); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/frictions/{id}
func (h *FrictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	friction, err := h.frictionService.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, friction); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/frictions
func (h *FrictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateFrictionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	friction, err := h.frictionService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, friction); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Vote handles POST /api/frictions/{id}/vote. Repeat votes by the same user are no-ops.
func (h *FrictionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	friction, err := h.frictionService.Vote(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, friction); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/frictions/{id}
func (h *FrictionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var req services.UpdateFrictionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	friction, err := h.frictionService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, friction); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
