// Package services contains business logic for aihub.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// ErrTokenExchangeFailed is returned when the identity provider rejects a code.
var ErrTokenExchangeFailed = errors.New("token exchange failed")

// OAuthConfig contains configuration for the OAuth service.
type OAuthConfig struct {
	// BaseURL is the base URL of this service (for redirect URI).
	BaseURL string
	// ClientID is the OAuth client ID.
	ClientID string
	// AuthServerURL is the identity provider base URL.
	AuthServerURL string
}

// CallbackPath is where the identity provider redirects after sign-in.
const CallbackPath = "/auth/callback"

// TokenExchangeRequest contains the parameters for a token exchange.
type TokenExchangeRequest struct {
	// Code is the authorization code from the OAuth callback.
	Code string
	// CodeVerifier is the PKCE code verifier.
	CodeVerifier string
}

// TokenResponse contains the response from a token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// OAuthService talks to the identity provider's authorize and token endpoints.
type OAuthService interface {
	// AuthorizeURL returns the provider URL the browser is sent to for sign-in.
	AuthorizeURL(state, codeChallenge string) (string, error)
	// ExchangeCodeForToken exchanges an authorization code for a JWT access token.
	ExchangeCodeForToken(ctx context.Context, req *TokenExchangeRequest) (*TokenResponse, error)
}

// HTTPClient interface for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type oauthService struct {
	config     *OAuthConfig
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(config *OAuthConfig, logger *zap.Logger) OAuthService {
	return NewOAuthServiceWithClient(config, &http.Client{}, logger)
}

// NewOAuthServiceWithClient creates a new OAuth service with a custom HTTP client (for testing).
func NewOAuthServiceWithClient(config *OAuthConfig, httpClient HTTPClient, logger *zap.Logger) OAuthService {
	return &oauthService{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (s *oauthService) redirectURI() (string, error) {
	baseURL, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	parsedURI, err := baseURL.Parse(CallbackPath)
	if err != nil {
		return "", fmt.Errorf("failed to construct redirect URI: %w", err)
	}
	return parsedURI.String(), nil
}

func (s *oauthService) endpoint(path string) (*url.URL, error) {
	if s.config.AuthServerURL == "" {
		return nil, errors.New("auth server URL is not configured")
	}
	authURL, err := url.Parse(s.config.AuthServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth server URL: %w", err)
	}
	return authURL.Parse(path)
}

func (s *oauthService) AuthorizeURL(state, codeChallenge string) (string, error) {
	redirectURI, err := s.redirectURI()
	if err != nil {
		return "", err
	}
	authorizeURL, err := s.endpoint("/authorize")
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.config.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	authorizeURL.RawQuery = q.Encode()
	return authorizeURL.String(), nil
}

func (s *oauthService) ExchangeCodeForToken(ctx context.Context, req *TokenExchangeRequest) (*TokenResponse, error) {
	redirectURI, err := s.redirectURI()
	if err != nil {
		return nil, err
	}

	reqBody := map[string]string{
		"grant_type":   "authorization_code",
		"code":         req.Code,
		"redirect_uri": redirectURI,
		"client_id":    s.config.ClientID,
	}
	if req.CodeVerifier != "" {
		reqBody["code_verifier"] = req.CodeVerifier
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	tokenURL, err := s.endpoint("/token")
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL.String(), bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		s.logger.Error("Token request failed",
			zap.String("token_url", tokenURL.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("Token endpoint error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchangeFailed, resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchangeFailed)
	}

	return &tokenResp, nil
}

var _ OAuthService = (*oauthService)(nil)
