package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// RouteMiddleware wraps a single route handler.
type RouteMiddleware func(http.HandlerFunc) http.HandlerFunc

// multipartOverhead is the allowance for multipart framing on top of the file itself.
const multipartOverhead int64 = 1 << 20

// UploadHandler accepts submission attachments.
type UploadHandler struct {
	uploadService services.UploadService
	logger        *zap.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploadService services.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, logger: logger}
}

// RegisterRoutes registers the upload handler's routes on the given mux.
// limit runs after authentication so it can key on the caller; nil disables it.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, limit RouteMiddleware) {
	handler := h.Upload
	if limit != nil {
		handler = limit(handler)
	}
	mux.HandleFunc("POST /api/uploads", authMiddleware.RequireAuth(handler))
}

// Upload handles POST /api/uploads (multipart field "file").
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteServiceError(w, r, h.logger, apperrors.NewValidationError("file", "must be at most 10 MB"))
			return
		}
		WriteServiceError(w, r, h.logger, apperrors.NewValidationError("file", "is required"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteServiceError(w, r, h.logger, apperrors.NewValidationError("file", "is required"))
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.uploadService.Upload(r.Context(), &services.UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		WriteServiceError(w, r, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
