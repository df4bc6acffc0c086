package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxCapturedErrorBody bounds how much of a rejected response is buffered for logging.
const maxCapturedErrorBody = 8 << 10

// APIErrorLogger logs client errors returned by JSON API routes at DEBUG level,
// including the error code and the paths of failing fields.
// Pass nil logger to disable logging.
func APIErrorLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &errorBodyRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			if recorder.status < 400 || recorder.status >= 500 {
				return
			}

			var body apiErrorBody
			if err := json.Unmarshal(recorder.body.Bytes(), &body); err != nil {
				logger.Debug("Failed to parse API error body", zap.Error(err))
				return
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.String("error", body.Error),
			}
			if len(body.Issues) > 0 {
				paths := make([]string, 0, len(body.Issues))
				for _, issue := range body.Issues {
					paths = append(paths, issue.Path)
				}
				fields = append(fields, zap.Strings("fields", paths))
			}
			logger.Debug("API request rejected", fields...)
		})
	}
}

// apiErrorBody mirrors the JSON error envelope written by the handlers.
type apiErrorBody struct {
	Error  string `json:"error"`
	Issues []struct {
		Path string `json:"path"`
	} `json:"issues"`
}

// errorBodyRecorder captures the body of 4xx responses only.
type errorBodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *errorBodyRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *errorBodyRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.status >= 400 && r.status < 500 && r.body.Len() < maxCapturedErrorBody {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func (r *errorBodyRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
