package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/audit"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/logging"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// Login page error codes passed as /login?error=<code>.
const (
	LoginErrorDomain = "domain"
	LoginErrorState  = "state"
	LoginErrorFailed = "failed"
)

// AuthHandler runs the browser sign-in redirect flow.
type AuthHandler struct {
	oauthService services.OAuthService
	validator    auth.TokenValidator
	userService  services.UserService
	sessions     *auth.SessionStore
	cookies      auth.CookieSettings
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	oauthService services.OAuthService,
	validator auth.TokenValidator,
	userService services.UserService,
	sessions *auth.SessionStore,
	cookies auth.CookieSettings,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		oauthService: oauthService,
		validator:    validator,
		userService:  userService,
		sessions:     sessions,
		cookies:      cookies,
		auditor:      auditor,
		logger:       logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET "+services.CallbackPath, h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
}

// Login handles GET /auth/login?next=/path.
// Stores OAuth state and the PKCE verifier in the session and redirects to the
// identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.fail(w, r, "Failed to generate OAuth state", err)
		return
	}
	verifier, err := auth.GenerateCodeVerifier()
	if err != nil {
		h.fail(w, r, "Failed to generate PKCE verifier", err)
		return
	}

	authorizeURL, err := h.oauthService.AuthorizeURL(state, auth.CodeChallengeS256(verifier))
	if err != nil {
		h.fail(w, r, "Failed to build authorize URL", err)
		return
	}

	session, _ := h.sessions.Get(r)
	session.Values[auth.SessionKeyState] = state
	session.Values[auth.SessionKeyCodeVerifier] = verifier
	session.Values[auth.SessionKeyOriginalURL] = SafeRedirect(r.URL.Query().Get("next"))
	if err := h.sessions.Save(r, w, session); err != nil {
		h.fail(w, r, "Failed to save OAuth session", err)
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Callback handles GET /auth/callback?code=...&state=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r)
	wantState, _ := session.Values[auth.SessionKeyState].(string)
	verifier, _ := session.Values[auth.SessionKeyCodeVerifier].(string)
	originalURL, _ := session.Values[auth.SessionKeyOriginalURL].(string)

	auth.ClearSessionValues(session)
	if err := h.sessions.Save(r, w, session); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || wantState == "" || state != wantState {
		h.logger.Warn("OAuth callback with missing or mismatched state",
			zap.Bool("has_code", code != ""),
			zap.Bool("has_session_state", wantState != ""))
		http.Redirect(w, r, "/login?error="+LoginErrorState, http.StatusFound)
		return
	}

	token, err := h.oauthService.ExchangeCodeForToken(r.Context(), &services.TokenExchangeRequest{
		Code:         code,
		CodeVerifier: verifier,
	})
	if err != nil {
		h.logger.Error("Token exchange failed", zap.String("error", logging.SanitizeError(err)))
		http.Redirect(w, r, "/login?error="+LoginErrorFailed, http.StatusFound)
		return
	}

	claims, err := h.validator.ValidateToken(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Warn("Identity token rejected", zap.Error(err))
		http.Redirect(w, r, "/login?error="+LoginErrorFailed, http.StatusFound)
		return
	}
	subject, err := claims.UserID()
	if err != nil {
		h.logger.Warn("Identity token has no usable subject", zap.Error(err))
		http.Redirect(w, r, "/login?error="+LoginErrorFailed, http.StatusFound)
		return
	}

	user, err := h.userService.SignIn(r.Context(), subject, claims.Email)
	if err != nil {
		auth.ClearSessionCookie(w, h.cookies)
		if errors.Is(err, services.ErrDomainNotAllowed) {
			h.auditor.LogSignInRejected(r.Context(), subject.String(), logging.EmailDomain(claims.Email), r.RemoteAddr)
			http.Redirect(w, r, "/login?error="+LoginErrorDomain, http.StatusFound)
			return
		}
		h.logger.Error("Sign-in failed", zap.String("error", logging.SanitizeError(err)))
		http.Redirect(w, r, "/login?error="+LoginErrorFailed, http.StatusFound)
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	auth.SetSessionCookie(w, token.AccessToken, expiresAt, h.cookies)

	h.logger.Info("User signed in", zap.String("user_id", user.ID.String()))
	http.Redirect(w, r, SafeRedirect(originalURL), http.StatusFound)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// SafeRedirect only allows local absolute paths; anything else becomes "/".
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/"
	}
	return target
}
