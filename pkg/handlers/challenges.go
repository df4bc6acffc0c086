package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// ChallengeHandler handles challenge (mission) HTTP requests.
type ChallengeHandler struct {
	challengeService services.ChallengeService
	logger           *zap.Logger
}

// NewChallengeHandler creates a new challenge handler.
func NewChallengeHandler(challengeService services.ChallengeService, logger *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		logger:           logger,
	}
}

// RegisterRoutes registers the challenge handler's routes on the given mux.
func (h *ChallengeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/challenges", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/challenges/active", authMiddleware.RequireAuth(h.ListActive))
	mux.HandleFunc("GET /api/challenges/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/challenges", authMiddleware.RequireModerator(h.Create))
}

// ListActive handles GET /api/challenges/active
func (h *ChallengeHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challengeService.ListActive(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, challenges); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/challenges, split into active and past missions.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.challengeService.ListAll(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, lists); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/challenges/{id}
func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	challenge, err := h.challengeService.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, challenge); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/challenges
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateChallengeInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	challenge, err := h.challengeService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, challenge); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
