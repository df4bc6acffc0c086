package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/audit"
	"github.com/ekaya-inc/aihub/pkg/auth"
)

// CSRF header and form field names used by the page script and forms.
const (
	CSRFHeader     = "X-CSRF-Token"
	CSRFFieldName  = "csrf_token"
	csrfCookieName = "aihub_csrf"
)

// CSRFConfig configures CSRF protection for cookie-authenticated requests.
type CSRFConfig struct {
	// Secret derives the token signing key; it must be stable across replicas.
	Secret string
	// Secure marks the cookie Secure and enforces HTTPS origin checks.
	Secure bool
	// TrustedOrigins are extra hosts allowed to submit forms, e.g. "hub.corp.example".
	TrustedOrigins []string
	// Auditor receives rejected requests; the logger is used when nil.
	Auditor *audit.SecurityAuditor
}

// CSRF protects unsafe methods of cookie-authenticated requests with gorilla/csrf.
// Requests that authenticate with a Bearer token and carry no session cookie
// are exempt, since browsers never attach that header cross-site.
func CSRF(cfg CSRFConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte("aihub-csrf:" + cfg.Secret))

	protect := csrf.Protect(key[:],
		csrf.Secure(cfg.Secure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(CSRFFieldName),
		csrf.RequestHeader(CSRFHeader),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			if cfg.Auditor != nil {
				cfg.Auditor.LogCSRFRejected(r.Context(), r.Method, r.URL.Path, reason, r.RemoteAddr)
			} else {
				logger.Warn("CSRF check failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("reason", reason))
			}
			writeJSONError(w, http.StatusForbidden, "forbidden", "CSRF token missing or invalid")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if isBearerOnly(r) {
				r = csrf.UnsafeSkipCheck(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func isBearerOnly(r *http.Request) bool {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return false
	}
	_, err := r.Cookie(auth.SessionCookieName)
	return err != nil
}

// CSRFToken returns the masked token for r; pages embed it for the form script.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}
