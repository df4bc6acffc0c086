package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"go.uber.org/zap"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	response     *http.Response
	err          error
	capturedURL  string
	capturedBody map[string]string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.capturedURL = req.URL.String()
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&m.capturedBody)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func testOAuthConfig() *OAuthConfig {
	return &OAuthConfig{
		BaseURL:       "http://localhost:3443",
		ClientID:      "aihub",
		AuthServerURL: "https://auth.example.com",
	}
}

func TestOAuthService_AuthorizeURL(t *testing.T) {
	service := NewOAuthService(testOAuthConfig(), zap.NewNop())

	raw, err := service.AuthorizeURL("state-1", "challenge-1")
	if err != nil {
		t.Fatalf("AuthorizeURL failed: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL: %v", err)
	}
	if u.Host != "auth.example.com" || u.Path != "/authorize" {
		t.Errorf("unexpected authorize endpoint %q", raw)
	}
	q := u.Query()
	if q.Get("state") != "state-1" || q.Get("code_challenge") != "challenge-1" {
		t.Errorf("missing state or challenge: %v", q)
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("expected S256, got %q", q.Get("code_challenge_method"))
	}
	if q.Get("redirect_uri") != "http://localhost:3443/auth/callback" {
		t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
}

func TestOAuthService_ExchangeCodeForToken_Success(t *testing.T) {
	client := &mockHTTPClient{
		response: jsonResponse(http.StatusOK, `{"access_token":"jwt-token","token_type":"Bearer","expires_in":3600}`),
	}
	service := NewOAuthServiceWithClient(testOAuthConfig(), client, zap.NewNop())

	token, err := service.ExchangeCodeForToken(context.Background(), &TokenExchangeRequest{
		Code:         "code-1",
		CodeVerifier: "verifier-1",
	})
	if err != nil {
		t.Fatalf("ExchangeCodeForToken failed: %v", err)
	}

	if token.AccessToken != "jwt-token" || token.ExpiresIn != 3600 {
		t.Errorf("unexpected token response %+v", token)
	}
	if client.capturedURL != "https://auth.example.com/token" {
		t.Errorf("expected token URL, got %q", client.capturedURL)
	}
	if client.capturedBody["code_verifier"] != "verifier-1" {
		t.Errorf("expected code_verifier to be sent, got %v", client.capturedBody)
	}
	if client.capturedBody["redirect_uri"] != "http://localhost:3443/auth/callback" {
		t.Errorf("unexpected redirect_uri %q", client.capturedBody["redirect_uri"])
	}
}

func TestOAuthService_ExchangeCodeForToken_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *mockHTTPClient
	}{
		{"transport error", &mockHTTPClient{err: errors.New("connection refused")}},
		{"non-200", &mockHTTPClient{response: jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`)}},
		{"empty token", &mockHTTPClient{response: jsonResponse(http.StatusOK, `{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewOAuthServiceWithClient(testOAuthConfig(), tt.client, zap.NewNop())
			_, err := service.ExchangeCodeForToken(context.Background(), &TokenExchangeRequest{Code: "c"})
			if !errors.Is(err, ErrTokenExchangeFailed) {
				t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
			}
		})
	}
}

func TestOAuthService_MissingAuthServer(t *testing.T) {
	cfg := testOAuthConfig()
	cfg.AuthServerURL = ""
	service := NewOAuthService(cfg, zap.NewNop())

	if _, err := service.AuthorizeURL("s", "c"); err == nil {
		t.Error("expected error when auth server URL is missing")
	}
}
