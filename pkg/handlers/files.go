package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/storage"
)

// SignedFileStore serves files addressed by signed download URLs.
type SignedFileStore interface {
	VerifyToken(key, token string) error
	Open(key string) (*os.File, error)
}

// FileHandler serves uploads stored by the local blob store.
type FileHandler struct {
	store  SignedFileStore
	logger *zap.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(store SignedFileStore, logger *zap.Logger) *FileHandler {
	return &FileHandler{store: store, logger: logger}
}

// RegisterRoutes registers the file handler's routes on the given mux.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+storage.DownloadPath+"{key...}", h.Download)
}

// Download handles GET /files/{key...}?token=
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.store.VerifyToken(key, r.URL.Query().Get("token")); err != nil {
		h.logger.Debug("Rejected file download", zap.String("key", key), zap.Error(err))
		if err := ErrorResponse(w, http.StatusForbidden, "forbidden", "Invalid or expired download link"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	f, err := h.store.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "File not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to open file", zap.String("key", key), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("Failed to stat file", zap.String("key", key), zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", `inline; filename="`+path.Base(key)+`"`)
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}
