package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/logging"
	"github.com/ekaya-inc/aihub/pkg/storage"
)

// MaxUploadSize is the largest accepted file.
const MaxUploadSize int64 = 10 << 20

var allowedUploadExtensions = map[string]bool{
	"pdf": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "webp": true, "doc": true, "docx": true,
}

var allowedUploadTypes = map[string]bool{
	"application/pdf":    true,
	"image/png":          true,
	"image/jpeg":         true,
	"image/gif":          true,
	"image/webp":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// UploadFile is an incoming multipart file.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is the response of POST /api/uploads.
type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// UploadService stores submission attachments.
type UploadService interface {
	// Upload checks size, extension and content type before anything is stored.
	Upload(ctx context.Context, file *UploadFile) (*UploadResult, error)
}

type uploadService struct {
	store  storage.BlobStore
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(store storage.BlobStore, signedURLTTL time.Duration, clock Clock, logger *zap.Logger) UploadService {
	return &uploadService{
		store:  store,
		ttl:    signedURLTTL,
		clock:  clock,
		logger: logger,
	}
}

// CheckUpload applies the size, extension and MIME allow-lists. It returns the
// normalized extension.
func CheckUpload(filename, contentType string, size int64) (string, error) {
	if size > MaxUploadSize {
		return "", apperrors.NewValidationError("file", "must be at most 10 MB")
	}
	if size <= 0 {
		return "", apperrors.NewValidationError("file", "is required")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedUploadExtensions[ext] {
		return "", apperrors.NewValidationError("file", "file type is not allowed")
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !allowedUploadTypes[strings.ToLower(mediaType)] {
		return "", apperrors.NewValidationError("file", "content type is not allowed")
	}
	return ext, nil
}

func (s *uploadService) Upload(ctx context.Context, file *UploadFile) (result *UploadResult, err error) {
	caller, err := auth.ResolveCaller(ctx)
	if err != nil {
		return nil, err
	}

	ext, err := CheckUpload(file.Filename, file.ContentType, file.Size)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "UploadService.Upload",
		attribute.Int64("size", file.Size),
		attribute.String("extension", ext))
	defer func() { endSpan(span, err) }()

	key := fmt.Sprintf("%s/%d-%s.%s", caller.ID, s.clock().UnixMilli(), uuid.NewString()[:8], ext)

	if err := s.store.Put(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, fmt.Errorf("%w: upload %s already exists", apperrors.ErrConflict, key)
		}
		s.logger.Error("Failed to store upload",
			zap.String("user_id", caller.ID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	url, err := s.store.SignedURL(ctx, key, s.ttl)
	if err != nil {
		s.logger.Error("Failed to sign upload URL",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("failed to sign upload URL: %w", err)
	}

	s.logger.Info("Stored upload",
		zap.String("user_id", caller.ID.String()),
		zap.String("key", key),
		zap.Int64("size", file.Size))
	return &UploadResult{Path: key, URL: url}, nil
}

var _ UploadService = (*uploadService)(nil)
