//go:build integration

package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/testhelpers"
)

func createUseCase(t *testing.T, repo UseCaseRepository, user uuid.UUID, title string, tools ...string) *models.UseCase {
	t.Helper()
	uc := &models.UseCase{
		Title: title, Description: "A reusable workflow for the team", Category: "Reporting",
		Complexity: models.ComplexityBeginner, Tools: tools,
		Steps:  []models.UseCaseStep{{Title: "Collect data"}, {Title: "Summarize", Description: "Ask for bullet points"}},
		Status: models.StatusApproved, SubmittedBy: user,
	}
	require.NoError(t, repo.Create(context.Background(), uc))
	return uc
}

func countFeatured(t *testing.T, testDB *testhelpers.TestDB) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.DB.QueryRow(context.Background(),
		`SELECT count(*) FROM use_cases WHERE is_featured`).Scan(&n))
	return n
}

// Featured-state tests share one global flag, so they do not run in parallel.
func TestUseCaseRepository_FeaturingMovesTheFlag(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	a := createUseCase(t, repo, user, "A")
	b := createUseCase(t, repo, user, "B")
	yes := true

	_, err := repo.Update(ctx, a.ID, UseCaseUpdate{IsFeatured: &yes})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, b.ID, UseCaseUpdate{IsFeatured: &yes})
	require.NoError(t, err)
	assert.True(t, updated.IsFeatured)

	featured, err := repo.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, featured.ID)
	assert.Equal(t, 1, countFeatured(t, testDB))

	no := false
	_, err = repo.Update(ctx, b.ID, UseCaseUpdate{IsFeatured: &no})
	require.NoError(t, err)
	assert.Equal(t, 0, countFeatured(t, testDB))

	_, err = repo.GetFeatured(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUseCaseRepository_ConcurrentFeatureRequests(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	targets := make([]*models.UseCase, 8)
	for i := range targets {
		targets[i] = createUseCase(t, repo, user, "Concurrent")
	}

	yes := true
	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, uc := range targets {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = repo.Update(ctx, id, UseCaseUpdate{IsFeatured: &yes})
		}(i, uc.ID)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, countFeatured(t, testDB))
}

func TestUseCaseRepository_UpdateStatusAndFeatureTogether(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	uc := createUseCase(t, repo, user, "Status and feature")
	rejected := models.StatusRejected
	no := false

	updated, err := repo.Update(ctx, uc.ID, UseCaseUpdate{Status: &rejected, IsFeatured: &no})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.False(t, updated.IsFeatured)

	yes := true
	_, err = repo.Update(ctx, uuid.New(), UseCaseUpdate{IsFeatured: &yes})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUseCaseRepository_RejectingClearsFeatured(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	uc := createUseCase(t, repo, user, "Featured then rejected")
	yes := true
	_, err := repo.Update(ctx, uc.ID, UseCaseUpdate{IsFeatured: &yes})
	require.NoError(t, err)

	rejected := models.StatusRejected
	updated, err := repo.Update(ctx, uc.ID, UseCaseUpdate{Status: &rejected})
	require.NoError(t, err)
	assert.False(t, updated.IsFeatured)

	_, err = repo.GetFeatured(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, countFeatured(t, testDB))
}

func TestUseCaseRepository_FeaturingRequiresApproval(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	current := createUseCase(t, repo, user, "Currently featured")
	yes := true
	_, err := repo.Update(ctx, current.ID, UseCaseUpdate{IsFeatured: &yes})
	require.NoError(t, err)

	pending := &models.UseCase{
		Title: "Pending", Description: "Waiting for a moderator to look", Category: "Reporting",
		Complexity: models.ComplexityBeginner, Tools: []string{"sheets"},
		Steps:  []models.UseCaseStep{{Title: "Collect data"}},
		Status: models.StatusPending, SubmittedBy: user,
	}
	require.NoError(t, repo.Create(ctx, pending))

	_, err = repo.Update(ctx, pending.ID, UseCaseUpdate{IsFeatured: &yes})
	_, ok := apperrors.IsDomain(err)
	assert.True(t, ok, "expected a domain error, got %v", err)

	featured, err := repo.GetFeatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.ID, featured.ID)

	// Approving and featuring in one update is allowed.
	approved := models.StatusApproved
	updated, err := repo.Update(ctx, pending.ID, UseCaseUpdate{Status: &approved, IsFeatured: &yes})
	require.NoError(t, err)
	assert.True(t, updated.IsFeatured)
	assert.Equal(t, 1, countFeatured(t, testDB))

	// The database refuses a featured row that is not approved.
	_, err = testDB.DB.Exec(ctx, `UPDATE use_cases SET status = 'pending' WHERE id = $1 AND is_featured`, pending.ID)
	assert.Error(t, err)
}

func TestUseCaseRepository_ListFilters(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	repo := NewUseCaseRepository(testDB.DB)
	ctx := context.Background()
	user := testDB.CreateUser(t, models.RoleUser)

	tool := "tool-" + uuid.NewString()
	zeta := createUseCase(t, repo, user, "Zeta", tool, "sheets")
	alpha := createUseCase(t, repo, user, "Alpha", tool)
	createUseCase(t, repo, user, "Unrelated", "other")

	byTitle, err := repo.List(ctx, UseCaseFilter{Tool: tool, Sort: UseCaseSortTitle})
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, alpha.ID, byTitle[0].ID)
	assert.Equal(t, zeta.ID, byTitle[1].ID)
	assert.Equal(t, []models.UseCaseStep{{Title: "Collect data"}, {Title: "Summarize", Description: "Ask for bullet points"}}, byTitle[0].Steps)

	recent, err := repo.List(ctx, UseCaseFilter{Tool: tool})
	require.NoError(t, err)
	assert.Equal(t, alpha.ID, recent[0].ID)
}
