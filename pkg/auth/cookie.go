package auth

import (
	"net/http"
	"net/url"
	"time"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope; empty means host-only.
	Domain string
}

// DeriveCookieSettings determines cookie settings from the public base URL:
//   - http://localhost:3443 → Secure: false, Domain: ""
//   - https://hub.corp.example → Secure: true, Domain: ""
//
// A non-empty configCookieDomain is used as the domain unless the host is local.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	parsedURL, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return CookieSettings{Secure: true, Domain: configCookieDomain}
	}

	settings := CookieSettings{
		Secure: parsedURL.Scheme != "http",
		Domain: configCookieDomain,
	}
	switch parsedURL.Hostname() {
	case "localhost", "127.0.0.1":
		settings.Domain = ""
	}
	return settings
}

// SetSessionCookie stores the identity token for browser clients.
// The cookie lives no longer than the token.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, settings CookieSettings) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if expiresAt.IsZero() || maxAge <= 0 {
		maxAge = int((8 * time.Hour).Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, settings CookieSettings) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
