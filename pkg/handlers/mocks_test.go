package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
	"github.com/ekaya-inc/aihub/pkg/validation"
)

// mockAuthService authenticates every request as the configured subject.
type mockAuthService struct {
	claims *auth.Claims
	err    error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.claims, "test-token", nil
}

// mockUserLookup resolves token subjects to stored users.
type mockUserLookup struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func testUser(role string) *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "jane.doe@corp.example",
		Name:  "Jane Doe",
		Role:  role,
	}
}

// newTestAuthMiddleware authenticates as user; a nil user makes every request anonymous.
func newTestAuthMiddleware(user *models.User) *auth.Middleware {
	if user == nil {
		return auth.NewMiddleware(&mockAuthService{err: auth.ErrMissingAuthorization}, &mockUserLookup{}, false, zap.NewNop())
	}
	claims := &auth.Claims{Email: user.Email}
	claims.Subject = user.ID.String()
	lookup := &mockUserLookup{users: map[uuid.UUID]*models.User{user.ID: user}}
	return auth.NewMiddleware(&mockAuthService{claims: claims}, lookup, false, zap.NewNop())
}

// mockChallengeService implements services.ChallengeService.
type mockChallengeService struct {
	challenge  *models.Challenge
	challenges []*models.Challenge
	lists      *services.ChallengeLists
	err        error

	created *services.CreateChallengeInput
}

func (m *mockChallengeService) ListActive(ctx context.Context) ([]*models.Challenge, error) {
	return m.challenges, m.err
}

func (m *mockChallengeService) ListAll(ctx context.Context) (*services.ChallengeLists, error) {
	return m.lists, m.err
}

func (m *mockChallengeService) Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.challenge, nil
}

func (m *mockChallengeService) Create(ctx context.Context, input *services.CreateChallengeInput) (*models.Challenge, error) {
	m.created = input
	if m.err != nil {
		return nil, m.err
	}
	return m.challenge, nil
}

// mockSubmissionService implements services.SubmissionService.
type mockSubmissionService struct {
	submission  *models.Submission
	submissions []*models.Submission
	err         error

	listedChallenge *uuid.UUID
	updatedID       uuid.UUID
}

func (m *mockSubmissionService) Create(ctx context.Context, input *services.CreateSubmissionInput) (*models.Submission, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.submission, nil
}

func (m *mockSubmissionService) List(ctx context.Context, challengeID *uuid.UUID) ([]*models.Submission, error) {
	m.listedChallenge = challengeID
	return m.submissions, m.err
}

func (m *mockSubmissionService) ListPending(ctx context.Context) ([]*models.Submission, error) {
	return m.submissions, m.err
}

func (m *mockSubmissionService) UpdateStatus(ctx context.Context, id uuid.UUID, input *services.UpdateSubmissionInput) (*models.Submission, error) {
	m.updatedID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.submission, nil
}

// mockFrictionService implements services.FrictionService.
type mockFrictionService struct {
	friction  *models.Friction
	frictions []*models.Friction
	err       error

	filter  repositories.FrictionFilter
	created *services.CreateFrictionInput
	votedID uuid.UUID
}

func (m *mockFrictionService) List(ctx context.Context, filter repositories.FrictionFilter) ([]*models.Friction, error) {
	m.filter = filter
	return m.frictions, m.err
}

func (m *mockFrictionService) Get(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.friction, nil
}

func (m *mockFrictionService) ListPending(ctx context.Context) ([]*models.Friction, error) {
	return m.frictions, m.err
}

func (m *mockFrictionService) Create(ctx context.Context, input *services.CreateFrictionInput) (*models.Friction, error) {
	m.created = input
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.friction, nil
}

func (m *mockFrictionService) Vote(ctx context.Context, id uuid.UUID) (*models.Friction, error) {
	m.votedID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.friction, nil
}

func (m *mockFrictionService) UpdateStatus(ctx context.Context, id uuid.UUID, input *services.UpdateFrictionInput) (*models.Friction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.friction, nil
}

// mockUseCaseService implements services.UseCaseService.
type mockUseCaseService struct {
	useCase  *models.UseCase
	useCases []*models.UseCase
	err      error

	filter  repositories.UseCaseFilter
	updated *services.UpdateUseCaseInput
}

func (m *mockUseCaseService) List(ctx context.Context, filter repositories.UseCaseFilter) ([]*models.UseCase, error) {
	m.filter = filter
	return m.useCases, m.err
}

func (m *mockUseCaseService) ListPending(ctx context.Context) ([]*models.UseCase, error) {
	return m.useCases, m.err
}

func (m *mockUseCaseService) Get(ctx context.Context, id uuid.UUID) (*models.UseCase, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.useCase, nil
}

func (m *mockUseCaseService) GetFeatured(ctx context.Context) (*models.UseCase, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.useCase, nil
}

func (m *mockUseCaseService) Create(ctx context.Context, input *services.CreateUseCaseInput) (*models.UseCase, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.useCase, nil
}

func (m *mockUseCaseService) Update(ctx context.Context, id uuid.UUID, input *services.UpdateUseCaseInput) (*models.UseCase, error) {
	m.updated = input
	if m.err != nil {
		return nil, m.err
	}
	return m.useCase, nil
}

// mockLocationService implements services.LocationService.
type mockLocationService struct {
	location  *models.Location
	locations []*models.Location
	err       error
}

func (m *mockLocationService) List(ctx context.Context) ([]*models.Location, error) {
	return m.locations, m.err
}

func (m *mockLocationService) Create(ctx context.Context, input *services.CreateLocationInput) (*models.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.location, nil
}

func (m *mockLocationService) Seed(ctx context.Context, inputs []services.CreateLocationInput) (int, error) {
	return len(inputs), m.err
}

// mockLeaderboardService implements services.LeaderboardService.
type mockLeaderboardService struct {
	entries []models.LeaderboardEntry
	err     error
}

func (m *mockLeaderboardService) Get(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return m.entries, m.err
}

func (m *mockLeaderboardService) Invalidate(ctx context.Context) {}

// mockHomeService implements services.HomeService.
type mockHomeService struct {
	preview *services.HomePreview
	err     error
}

func (m *mockHomeService) Get(ctx context.Context) (*services.HomePreview, error) {
	return m.preview, m.err
}

// mockUserService implements services.UserService.
type mockUserService struct {
	user *models.User
	err  error

	signInSubject uuid.UUID
	signInEmail   string
	profile       *services.UpdateProfileInput
}

func (m *mockUserService) SignIn(ctx context.Context, subject uuid.UUID, email string) (*models.User, error) {
	m.signInSubject = subject
	m.signInEmail = email
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) Me(ctx context.Context) (*models.User, error) {
	return auth.ResolveCaller(ctx)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, input *services.UpdateProfileInput) (*models.User, error) {
	m.profile = input
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	return m.user, m.err
}

// mockUploadService implements services.UploadService.
type mockUploadService struct {
	result *services.UploadResult
	err    error

	calls    int
	received *services.UploadFile
	body     []byte
}

func (m *mockUploadService) Upload(ctx context.Context, file *services.UploadFile) (*services.UploadResult, error) {
	m.calls++
	m.received = file
	if _, err := services.CheckUpload(file.Filename, file.ContentType, file.Size); err != nil {
		return nil, err
	}
	m.body, _ = io.ReadAll(file.Body)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockOAuthService implements services.OAuthService.
type mockOAuthService struct {
	token string
	err   error

	exchanged *services.TokenExchangeRequest
}

func (m *mockOAuthService) AuthorizeURL(state, codeChallenge string) (string, error) {
	return "https://idp.example/authorize?state=" + state + "&code_challenge=" + codeChallenge, nil
}

func (m *mockOAuthService) ExchangeCodeForToken(ctx context.Context, req *services.TokenExchangeRequest) (*services.TokenResponse, error) {
	m.exchanged = req
	if m.err != nil {
		return nil, m.err
	}
	return &services.TokenResponse{AccessToken: m.token, TokenType: "Bearer", ExpiresIn: 3600}, nil
}

// mockTokenValidator returns fixed claims for any token.
type mockTokenValidator struct {
	claims *auth.Claims
	err    error
}

func (m *mockTokenValidator) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockTokenValidator) Close() {}

func sampleChallenge() *models.Challenge {
	return &models.Challenge{
		ID:          uuid.New(),
		Title:       "Automate a weekly report",
		Description: "Use an assistant to draft your weekly status report.",
		StartDate:   "2026-03-01",
		EndDate:     "2026-03-31",
		Status:      models.ChallengeActive,
		CreatedAt:   time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC),
	}
}
