package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// UseCaseHandler handles shared use-case HTTP requests.
type UseCaseHandler struct {
	useCaseService services.UseCaseService
	logger         *zap.Logger
}

// NewUseCaseHandler creates a new use-case handler.
func NewUseCaseHandler(useCaseService services.UseCaseService, logger *zap.Logger) *UseCaseHandler {
	return &UseCaseHandler{
		useCaseService: useCaseService,
		logger:         logger,
	}
}

// RegisterRoutes registers the use-case handler's routes on the given mux.
func (h *UseCaseHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/use-cases", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/use-cases", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/use-cases/featured", authMiddleware.RequireAuth(h.GetFeatured))
	mux.HandleFunc("GET /api/use-cases/pending", authMiddleware.RequireModerator(h.ListPending))
	mux.HandleFunc("GET /api/use-cases/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/use-cases/{id}", authMiddleware.RequireModerator(h.Update))
}

// List handles GET /api/use-cases?status=&category=&tool=&sort=
func (h *UseCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	useCases, err := h.useCaseService.List(r.Context(), repositories.UseCaseFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Tool:     q.Get("tool"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, useCases); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListPending handles GET /api/use-cases/pending
func (h *UseCaseHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	useCases, err := h.useCaseService.ListPending(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, useCases); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetFeatured handles GET /api/use-cases/featured. 404 when nothing is featured.
func (h *UseCaseHandler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	useCase, err := h.useCaseService.GetFeatured(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, useCase); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/use-cases/{id}
func (h *UseCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	useCase, err := h.useCaseService.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, useCase); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/use-cases
func (h *UseCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateUseCaseInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	useCase, err := h.useCaseService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, useCase); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/use-cases/{id}
func (h *UseCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var req services.UpdateUseCaseInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	useCase, err := h.useCaseService.Update(r.Context(), id, &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, useCase); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
