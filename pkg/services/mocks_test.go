package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
)

var fixedNow = time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func asUser(role string) (context.Context, *models.User) {
	u := &models.User{ID: uuid.New(), Email: "jane@corp.com", Name: "Jane", Role: role}
	return auth.WithUser(context.Background(), u), u
}

// mockUserRepository is a configurable mock for testing UserService.
type mockUserRepository struct {
	users     map[uuid.UUID]*models.User
	createErr error
	updateErr error

	createCalls   int
	capturedName  *string
	capturedLocID *uuid.UUID
	capturedRole  string
	capturedEmail string
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, false, m.createErr
	}
	if existing, ok := m.users[user.ID]; ok {
		return existing, false, nil
	}
	stored := *user
	m.users[user.ID] = &stored
	return &stored, true, nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name *string, locationID *uuid.UUID) (*models.User, error) {
	m.capturedName = name
	m.capturedLocID = locationID
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.User{ID: id}, nil
}

func (m *mockUserRepository) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	m.capturedEmail = email
	m.capturedRole = role
	return &models.User{ID: uuid.New(), Email: email, Role: role}, nil
}

type mockLocationRepository struct {
	locations []*models.Location
	listErr   error
	createErr error
	created   []*models.Location
	upserted  []*models.Location
}

func (m *mockLocationRepository) List(ctx context.Context) ([]*models.Location, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.locations, nil
}

func (m *mockLocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	for _, l := range m.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockLocationRepository) Create(ctx context.Context, loc *models.Location) error {
	if m.createErr != nil {
		return m.createErr
	}
	loc.ID = uuid.New()
	m.created = append(m.created, loc)
	return nil
}

func (m *mockLocationRepository) Upsert(ctx context.Context, loc *models.Location) error {
	m.upserted = append(m.upserted, loc)
	return nil
}

type mockChallengeRepository struct {
	challenges    map[uuid.UUID]*models.Challenge
	active        []*models.Challenge
	published     []*models.Challenge
	listErr       error
	created       *models.Challenge
	capturedDay   string
	capturedLimit int
}

func (m *mockChallengeRepository) ListActive(ctx context.Context, today string, limit int) ([]*models.Challenge, error) {
	m.capturedDay = today
	m.capturedLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.active, nil
}

func (m *mockChallengeRepository) ListPublished(ctx context.Context) ([]*models.Challenge, error) {
	return m.published, nil
}

func (m *mockChallengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	if c, ok := m.challenges[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	c.ID = uuid.New()
	m.created = c
	return nil
}

type mockSubmissionRepository struct {
	mu         sync.Mutex
	rows       []*models.Submission
	counts     map[uuid.UUID]int
	listFilter repositories.SubmissionFilter
	updateErr  error
}

func (m *mockSubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.UserID == s.UserID && existing.ChallengeID == s.ChallengeID {
			return apperrors.ErrConflict
		}
	}
	s.ID = uuid.New()
	m.rows = append(m.rows, s)
	return nil
}

func (m *mockSubmissionRepository) List(ctx context.Context, filter repositories.SubmissionFilter) ([]*models.Submission, error) {
	m.listFilter = filter
	return m.rows, nil
}

func (m *mockSubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, feedback *string) (*models.Submission, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.Submission{ID: id, Status: status, Feedback: feedback}, nil
}

func (m *mockSubmissionRepository) CountApprovedByLocation(ctx context.Context) (map[uuid.UUID]int, error) {
	return m.counts, nil
}

type mockFrictionRepository struct {
	frictions map[uuid.UUID]*models.Friction
	voters    map[uuid.UUID]map[uuid.UUID]bool
	filter    repositories.FrictionFilter
	created   *models.Friction
}

func newMockFrictionRepository() *mockFrictionRepository {
	return &mockFrictionRepository{
		frictions: make(map[uuid.UUID]*models.Friction),
		voters:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockFrictionRepository) List(ctx context.Context, filter repositories.FrictionFilter) ([]*models.Friction, error) {
	m.filter = filter
	out := make([]*models.Friction, 0, len(m.frictions))
	for _, f := range m.frictions {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFrictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	if f, ok := m.frictions[id]; ok {
		return f, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFrictionRepository) Create(ctx context.Context, f *models.Friction) error {
	f.ID = uuid.New()
	m.created = f
	m.frictions[f.ID] = f
	return nil
}

func (m *mockFrictionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, impactScore *int) (*models.Friction, error) {
	f, ok := m.frictions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	f.Status = status
	f.ImpactScore = impactScore
	return f, nil
}

func (m *mockFrictionRepository) AddVote(ctx context.Context, frictionID, userID uuid.UUID) (bool, error) {
	f, ok := m.frictions[frictionID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if m.voters[frictionID] == nil {
		m.voters[frictionID] = make(map[uuid.UUID]bool)
	}
	if m.voters[frictionID][userID] {
		return false, nil
	}
	m.voters[frictionID][userID] = true
	f.Votes++
	return true, nil
}

type mockUseCaseRepository struct {
	filter    repositories.UseCaseFilter
	update    repositories.UseCaseUpdate
	created   *models.UseCase
	featured  *models.UseCase
	updateErr error
}

func (m *mockUseCaseRepository) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	m.filter = filter
	return []*models.UseCase{}, nil
}

func (m *mockUseCaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UseCase, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockUseCaseRepository) GetFeatured(ctx context.Context) (*models.UseCase, error) {
	if m.featured == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.featured, nil
}

func (m *mockUseCaseRepository) Create(ctx context.Context, uc *models.UseCase) error {
	uc.ID = uuid.New()
	m.created = uc
	return nil
}

func (m *mockUseCaseRepository) Update(ctx context.Context, id uuid.UUID, update repositories.UseCaseUpdate) (*models.UseCase, error) {
	m.update = update
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	uc := &models.UseCase{ID: id}
	if update.IsFeatured != nil {
		uc.IsFeatured = *update.IsFeatured
	}
	return uc, nil
}

// memoryCache is an in-process cache.Cache.
type memoryCache struct {
	mu      sync.Mutex
	values  map[string]any
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]any)}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	if entries, ok := dest.(*[]models.LeaderboardEntry); ok {
		*entries = v.([]models.LeaderboardEntry)
	}
	return true, nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	c.deletes++
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error { return nil }

func (c *memoryCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, nil
}

func (c *memoryCache) Enabled() bool { return true }

type mockBlobStore struct {
	putErr  error
	keys    []string
	data    []byte
	signErr error
}

func (m *mockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.keys = append(m.keys, key)
	b, err := io.ReadAll(r)
	m.data = b
	return err
}

func (m *mockBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.signErr != nil {
		return "", m.signErr
	}
	return "https://files.example.com/" + key + "?sig=abc", nil
}

// recordingLeaderboard counts invalidations.
type recordingLeaderboard struct {
	entries       []models.LeaderboardEntry
	err           error
	invalidations int
}

func (r *recordingLeaderboard) Get(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return r.entries, r.err
}

func (r *recordingLeaderboard) Invalidate(ctx context.Context) { r.invalidations++ }
