package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// SubmissionHandler handles challenge submission HTTP requests.
type SubmissionHandler struct {
	submissionService services.SubmissionService
	logger            *zap.Logger
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(submissionService services.SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the submission handler's routes on the given mux.
func (h *SubmissionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/submissions", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/submissions", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/submissions/pending", authMiddleware.RequireModerator(h.ListPending))
	mux.HandleFunc("PUT /api/submissions/{id}", authMiddleware.RequireModerator(h.Update))
}

// List handles GET /api/submissions?challenge_id=
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	challengeID, ok := parseOptionalUUIDQuery(w, r, "challenge_id", h.logger)
	if !ok {
		return
	}
	submissions, err := h.submissionService.List(r.Context(), challengeID)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSONWithETag(w, r, submissions); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListPending handles GET /api/submissions/pending
func (h *SubmissionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionService.ListPending(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, submissions); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/submissions
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSubmissionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	submission, err := h.submissionService.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, submission); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/submissions/{id}
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var req services.UpdateSubmissionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	submission, err := h.submissionService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, submission); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
