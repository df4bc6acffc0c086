package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/services"
)

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFrictionHandler_CreateValidationScenario(t *testing.T) {
	svc := &mockFrictionService{friction: &models.Friction{}}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodPost, "/api/frictions",
		`{"title":"a","description":"short","category":"Other","frequency":"daily"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_failed", body.Error)

	paths := make([]string, 0, len(body.Issues))
	for _, issue := range body.Issues {
		paths = append(paths, issue.Path)
	}
	assert.ElementsMatch(t, []string{"title", "description"}, paths)
}

func TestFrictionHandler_CreateIgnoresUnknownFields(t *testing.T) {
	svc := &mockFrictionService{friction: &models.Friction{Title: "Manual invoice matching"}}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodPost, "/api/frictions",
		`{"title":"Manual invoice matching","description":"Matching invoices by hand every week","category":"Finance","frequency":"weekly","votes":999}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "weekly", svc.created.Frequency)
}

func TestFrictionHandler_ListPassesFilter(t *testing.T) {
	svc := &mockFrictionService{frictions: []*models.Friction{}}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/frictions?status=approved&category=Finance&sort=impact", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", svc.filter.Status)
	assert.Equal(t, "Finance", svc.filter.Category)
	assert.Equal(t, "impact", svc.filter.Sort)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestFrictionHandler_ListUnknownSort(t *testing.T) {
	svc := &mockFrictionService{err: apperrors.NewValidationError("sort", "must be one of: votes recent impact")}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/frictions?sort=loudest", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sort", decodeError(t, rec).Issues[0].Path)
}

func TestFrictionHandler_Vote(t *testing.T) {
	id := uuid.New()
	svc := &mockFrictionService{friction: &models.Friction{ID: id, Votes: 4}}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodPost, "/api/frictions/"+id.String()+"/vote", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.votedID)
	var got models.Friction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Votes)
}

func TestFrictionHandler_UpdateNotFound(t *testing.T) {
	svc := &mockFrictionService{err: apperrors.ErrNotFound}
	mux := http.NewServeMux()
	NewFrictionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleModerator)))

	rec := serve(mux, http.MethodPut, "/api/frictions/"+uuid.NewString(), `{"status":"approved"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_InvalidIDAndBody(t *testing.T) {
	mux := http.NewServeMux()
	NewFrictionHandler(&mockFrictionService{}, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleModerator)))

	rec := serve(mux, http.MethodGet, "/api/frictions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Error)

	rec = serve(mux, http.MethodPut, "/api/frictions/"+uuid.NewString(), `{"status":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Error)
}

func TestSubmissionHandler_CreateOutcomes(t *testing.T) {
	body := `{"challenge_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","content":"My prompt library"}`

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"duplicate", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"ended challenge", apperrors.NewDomainError("challenge has ended"), http.StatusBadRequest, "domain_rule_violation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSubmissionService{submission: &models.Submission{Status: models.StatusPending}, err: tt.err}
			mux := http.NewServeMux()
			NewSubmissionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

			rec := serve(mux, http.MethodPost, "/api/submissions", body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Error)
			}
		})
	}
}

func TestSubmissionHandler_ListChallengeFilter(t *testing.T) {
	svc := &mockSubmissionService{submissions: []*models.Submission{}}
	mux := http.NewServeMux()
	NewSubmissionHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	challengeID := uuid.New()
	rec := serve(mux, http.MethodGet, "/api/submissions?challenge_id="+challengeID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listedChallenge)
	assert.Equal(t, challengeID, *svc.listedChallenge)

	rec = serve(mux, http.MethodGet, "/api/submissions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.listedChallenge)

	rec = serve(mux, http.MethodGet, "/api/submissions?challenge_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_challenge_id", decodeError(t, rec).Error)
}

func TestChallengeHandler_CreatePassesBody(t *testing.T) {
	svc := &mockChallengeService{challenge: sampleChallenge()}
	mux := http.NewServeMux()
	NewChallengeHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleModerator)))

	rec := serve(mux, http.MethodPost, "/api/challenges",
		`{"title":"Automate a weekly report","description":"Use an assistant for it.","start_date":"2026-03-01","end_date":"2026-03-31"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "2026-03-31", svc.created.EndDate)
}

func TestChallengeHandler_ListActiveNotModified(t *testing.T) {
	svc := &mockChallengeService{challenges: []*models.Challenge{sampleChallenge()}}
	mux := http.NewServeMux()
	NewChallengeHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	first := serve(mux, http.MethodGet, "/api/challenges/active", "")
	require.Equal(t, http.StatusOK, first.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/active", nil)
	req.Header.Set("If-None-Match", first.Header().Get("ETag"))
	second := httptest.NewRecorder()
	mux.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
}

func TestUseCaseHandler_FeaturedNotFound(t *testing.T) {
	svc := &mockUseCaseService{err: apperrors.ErrNotFound}
	mux := http.NewServeMux()
	NewUseCaseHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/use-cases/featured", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUseCaseHandler_UpdateFeatured(t *testing.T) {
	svc := &mockUseCaseService{useCase: &models.UseCase{IsFeatured: true}}
	mux := http.NewServeMux()
	NewUseCaseHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleModerator)))

	rec := serve(mux, http.MethodPut, "/api/use-cases/"+uuid.NewString(), `{"is_featured":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	require.NotNil(t, svc.updated.IsFeatured)
	assert.True(t, *svc.updated.IsFeatured)
	assert.Nil(t, svc.updated.Status)
}

func TestUseCaseHandler_ListFilters(t *testing.T) {
	svc := &mockUseCaseService{useCases: []*models.UseCase{}}
	mux := http.NewServeMux()
	NewUseCaseHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/use-cases?category=Sales&tool=ChatGPT&sort=title", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sales", svc.filter.Category)
	assert.Equal(t, "ChatGPT", svc.filter.Tool)
	assert.Equal(t, "title", svc.filter.Sort)
	assert.Empty(t, svc.filter.Status)
}

func TestLocationHandler_Leaderboard(t *testing.T) {
	nyc := models.Location{ID: uuid.New(), Name: "NYC", TotalPeople: 10}
	svc := &mockLeaderboardService{entries: []models.LeaderboardEntry{
		{Location: nyc, SubmissionsCount: 3, ParticipationRate: 30},
	}}
	mux := http.NewServeMux()
	NewLocationHandler(&mockLocationService{}, svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/leaderboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []struct {
		Location struct {
			Name        string `json:"name"`
			TotalPeople int    `json:"total_people"`
		} `json:"location"`
		SubmissionsCount  int `json:"submissions_count"`
		ParticipationRate int `json:"participation_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "NYC", got[0].Location.Name)
	assert.Equal(t, 3, got[0].SubmissionsCount)
	assert.Equal(t, 30, got[0].ParticipationRate)
}

func TestLocationHandler_CreateDuplicate(t *testing.T) {
	mux := http.NewServeMux()
	NewLocationHandler(&mockLocationService{err: apperrors.ErrConflict}, &mockLeaderboardService{}, zap.NewNop()).
		RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleModerator)))

	rec := serve(mux, http.MethodPost, "/api/locations", `{"name":"NYC","total_people":10}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMeHandler_GetAndUpdate(t *testing.T) {
	user := testUser(models.RoleUser)
	renamed := *user
	renamed.Name = "Janie"
	svc := &mockUserService{user: &renamed}

	mux := http.NewServeMux()
	NewMeHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(user))

	rec := serve(mux, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, user.ID, me.ID)

	rec = serve(mux, http.MethodPut, "/api/me", `{"name":"Janie","role":"moderator"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.profile)
	require.NotNil(t, svc.profile.Name)
	assert.Equal(t, "Janie", *svc.profile.Name)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, models.RoleUser, me.Role)
}

func TestHomeHandler_Get(t *testing.T) {
	challenge := sampleChallenge()
	svc := &mockHomeService{preview: &services.HomePreview{
		Challenge:   challenge,
		Leaderboard: []models.LeaderboardEntry{},
	}}
	mux := http.NewServeMux()
	NewHomeHandler(svc, zap.NewNop()).RegisterRoutes(mux, newTestAuthMiddleware(testUser(models.RoleUser)))

	rec := serve(mux, http.MethodGet, "/api/home", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Challenge   *models.Challenge         `json:"challenge"`
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Challenge)
	assert.Equal(t, challenge.ID, got.Challenge.ID)
}
