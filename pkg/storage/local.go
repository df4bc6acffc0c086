package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DownloadPath is the route prefix that serves local blobs.
const DownloadPath = "/files/"

// ErrInvalidToken is returned when a download token is malformed, expired or
// issued for another key.
var ErrInvalidToken = errors.New("invalid download token")

type downloadClaims struct {
	jwt.RegisteredClaims
	Key string `json:"key"`
}

// LocalStore keeps blobs under a directory. Download URLs carry an HS256 token
// bound to the key and an expiry.
type LocalStore struct {
	root       string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, baseURL, signingKey string) (*LocalStore, error) {
	if signingKey == "" {
		return nil, errors.New("local storage requires UPLOAD_SIGNING_KEY")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{
		root:       root,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: []byte(signingKey),
		now:        time.Now,
	}, nil
}

// cleanKey rejects absolute and parent-relative keys.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func (s *LocalStore) pathFor(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short write: wrote %d of %d bytes", written, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Link fails when p exists, so stored objects are never replaced.
	if err := os.Link(tmp.Name(), p); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

func (s *LocalStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := cleanKey(key); err != nil {
		return "", err
	}
	now := s.now()
	claims := downloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Key: key,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return s.baseURL + DownloadPath + key + "?token=" + url.QueryEscape(token), nil
}

// VerifyToken checks that token grants access to key.
func (s *LocalStore) VerifyToken(key, token string) error {
	var claims downloadClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Key != key {
		return ErrInvalidToken
	}
	return nil
}

// Open returns the stored file for key.
func (s *LocalStore) Open(key string) (*os.File, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

var _ BlobStore = (*LocalStore)(nil)
