package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the OAuth session cookie.
const SessionName = "aihub-oauth"

// Session value keys.
const (
	SessionKeyState        = "state"
	SessionKeyCodeVerifier = "code_verifier"
	SessionKeyOriginalURL  = "original_url"
)

// SessionStore keeps OAuth state (state, PKCE verifier, return URL) in a signed
// cookie for the duration of the sign-in redirect.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore signs cookies with a key derived from secret. The secret must be
// stable across restarts and replicas.
//
// SameSite is Lax so the cookie survives the top-level redirect back from the
// identity provider.
func NewSessionStore(secret string, cookies CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookies.Domain,
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Get retrieves the OAuth session, creating a new one if absent or unreadable.
func (s *SessionStore) Get(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, SessionName)
}

// Save writes the session to the response.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return session.Save(r, w)
}

// ClearSessionValues removes OAuth-related values from the session.
func ClearSessionValues(session *sessions.Session) {
	delete(session.Values, SessionKeyState)
	delete(session.Values, SessionKeyCodeVerifier)
	delete(session.Values, SessionKeyOriginalURL)
}
