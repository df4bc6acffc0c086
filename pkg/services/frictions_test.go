package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
)

func TestFrictionService_Create_ValidationPaths(t *testing.T) {
	repo := newMockFrictionRepository()
	svc := NewFrictionService(repo, zap.NewNop())
	ctx, _ := asUser(models.RoleUser)

	_, err := svc.Create(ctx, &CreateFrictionInput{
		Title:       "a",
		Description: "short",
		Category:    "Other",
		Frequency:   models.FrequencyDaily,
	})

	verr, ok := apperrors.IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	issues := map[string]string{}
	for _, issue := range verr.Issues {
		issues[issue.Path] = issue.Message
	}
	assert.Equal(t, map[string]string{
		"title":       "must be at least 3 characters",
		"description": "must be at least 10 characters",
	}, issues)
	assert.Nil(t, repo.created)
}

func TestFrictionService_Create(t *testing.T) {
	repo := newMockFrictionRepository()
	svc := NewFrictionService(repo, zap.NewNop())
	ctx, user := asUser(models.RoleUser)

	f, err := svc.Create(ctx, &CreateFrictionInput{
		Title:       "Manual invoice matching",
		Description: "Every Friday we match invoices by hand.",
		Category:    " Finance ",
		Frequency:   models.FrequencyWeekly,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, f.Status)
	assert.Equal(t, "Finance", f.Category)
	assert.Equal(t, user.ID, f.SubmittedBy)
	assert.Zero(t, f.Votes)
}

func TestFrictionService_Create_PaddedTitleIsMeasuredTrimmed(t *testing.T) {
	repo := newMockFrictionRepository()
	svc := NewFrictionService(repo, zap.NewNop())
	ctx, _ := asUser(models.RoleUser)

	_, err := svc.Create(ctx, &CreateFrictionInput{
		Title:       "   a   ",
		Description: "Every Friday we match invoices by hand.",
		Category:    "Finance",
		Frequency:   models.FrequencyWeekly,
	})

	verr, ok := apperrors.IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "title", verr.Issues[0].Path)
	assert.Nil(t, repo.created)
}

func TestFrictionService_Vote_Idempotent(t *testing.T) {
	repo := newMockFrictionRepository()
	id := uuid.New()
	repo.frictions[id] = &models.Friction{ID: id}
	svc := NewFrictionService(repo, zap.NewNop())
	ctx, _ := asUser(models.RoleUser)

	f, err := svc.Vote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Votes)

	f, err = svc.Vote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Votes)

	other, _ := asUser(models.RoleUser)
	f, err = svc.Vote(other, id)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Votes)

	_, err = svc.Vote(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFrictionService_UpdateStatus(t *testing.T) {
	repo := newMockFrictionRepository()
	id := uuid.New()
	repo.frictions[id] = &models.Friction{ID: id, Status: models.StatusPending}
	svc := NewFrictionService(repo, zap.NewNop())
	score := 8

	userCtx, _ := asUser(models.RoleUser)
	_, err := svc.UpdateStatus(userCtx, id, &UpdateFrictionInput{Status: models.StatusResolved})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	modCtx, _ := asUser(models.RoleModerator)
	bad := 11
	_, err = svc.UpdateStatus(modCtx, id, &UpdateFrictionInput{Status: models.StatusApproved, ImpactScore: &bad})
	_, ok := apperrors.IsValidation(err)
	assert.True(t, ok)

	f, err := svc.UpdateStatus(modCtx, id, &UpdateFrictionInput{Status: models.StatusResolved, ImpactScore: &score})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, f.Status)
	assert.Equal(t, 8, *f.ImpactScore)

	_, err = svc.UpdateStatus(modCtx, uuid.New(), &UpdateFrictionInput{Status: models.StatusApproved})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFrictionService_ListPending(t *testing.T) {
	repo := newMockFrictionRepository()
	svc := NewFrictionService(repo, zap.NewNop())

	modCtx, _ := asUser(models.RoleModerator)
	_, err := svc.ListPending(modCtx)
	require.NoError(t, err)
	assert.Equal(t, repositories.FrictionFilter{Status: models.StatusPending, Sort: repositories.FrictionSortRecent}, repo.filter)
}
