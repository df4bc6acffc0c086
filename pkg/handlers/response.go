package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/logging"
)

// ErrorBody is the JSON error envelope. Issues is only present for validation failures.
type ErrorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Issues  []apperrors.FieldIssue `json:"issues,omitempty"`
}

// ErrorResponse writes a JSON error response with the given status code.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return writeErrorBody(w, statusCode, ErrorBody{Error: errorCode, Message: message})
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorBody) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteJSONWithETag writes a 200 response carrying a weak ETag derived from the
// body, or 304 when the request's If-None-Match already names it.
func WriteJSONWithETag(w http.ResponseWriter, r *http.Request, data any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	etag := fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(buf.Bytes()))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(buf.Bytes())
	return err
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}

// WriteServiceError maps a service error onto its HTTP status and error body.
// Unexpected errors are logged with the route and answered with a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, body := classifyError(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := writeErrorBody(w, status, body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func classifyError(err error) (int, ErrorBody) {
	if verr, ok := apperrors.IsValidation(err); ok {
		return http.StatusBadRequest, ErrorBody{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Issues:  verr.Issues,
		}
	}
	if derr, ok := apperrors.IsDomain(err); ok {
		return http.StatusBadRequest, ErrorBody{Error: "domain_rule_violation", Message: derr.Message}
	}

	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Message: "Authentication required"}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "forbidden", Message: "Moderator role required"}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not_found", Message: "Resource not found"}
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorBody{Error: "conflict", Message: "Resource already exists"}
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorBody{Error: "rate_limited", Message: "Too many requests"}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "Internal server error"}
}

// decodeJSON reads the request body into dst. Unknown fields are ignored.
// A malformed body is answered with 400 and reported as false.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
