package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
)

func validChallengeInput() *CreateChallengeInput {
	return &CreateChallengeInput{
		Title:       "Automate a report",
		Description: "Use an assistant to automate one recurring report.",
		StartDate:   "2026-03-01",
		EndDate:     "2026-03-31",
	}
}

func TestChallengeService_ListActive_UsesUTCDate(t *testing.T) {
	repo := &mockChallengeRepository{}
	svc := NewChallengeService(repo, fixedClock, zap.NewNop())
	ctx, _ := asUser(models.RoleUser)

	_, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", repo.capturedDay)
	assert.Zero(t, repo.capturedLimit)
}

func TestChallengeService_ListAll_Splits(t *testing.T) {
	open := &models.Challenge{ID: uuid.New(), Status: models.ChallengeActive, EndDate: "2026-03-20"}
	lapsed := &models.Challenge{ID: uuid.New(), Status: models.ChallengeActive, EndDate: "2026-03-14"}
	done := &models.Challenge{ID: uuid.New(), Status: models.ChallengeCompleted, EndDate: "2026-04-01"}
	repo := &mockChallengeRepository{published: []*models.Challenge{open, lapsed, done}}
	svc := NewChallengeService(repo, fixedClock, zap.NewNop())
	ctx, _ := asUser(models.RoleUser)

	lists, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*models.Challenge{open}, lists.Active)
	assert.Equal(t, []*models.Challenge{lapsed, done}, lists.Past)
}

func TestChallengeService_Create(t *testing.T) {
	repo := &mockChallengeRepository{}
	svc := NewChallengeService(repo, fixedClock, zap.NewNop())
	ctx, mod := asUser(models.RoleModerator)

	c, err := svc.Create(ctx, validChallengeInput())
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeActive, c.Status)
	assert.Equal(t, mod.ID, c.CreatedBy)
}

func TestChallengeService_Create_TrimsBeforeValidating(t *testing.T) {
	repo := &mockChallengeRepository{}
	svc := NewChallengeService(repo, fixedClock, zap.NewNop())
	ctx, _ := asUser(models.RoleModerator)

	in := validChallengeInput()
	in.Title = "  ab  "
	_, err := svc.Create(ctx, in)
	_, ok := apperrors.IsValidation(err)
	assert.True(t, ok, "expected validation error, got %v", err)
	assert.Nil(t, repo.created)

	in = validChallengeInput()
	in.Title = "  Automate a report  "
	c, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Automate a report", c.Title)
}

func TestChallengeService_Create_Rules(t *testing.T) {
	repo := &mockChallengeRepository{}
	svc := NewChallengeService(repo, fixedClock, zap.NewNop())

	userCtx, _ := asUser(models.RoleUser)
	_, err := svc.Create(userCtx, validChallengeInput())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	modCtx, _ := asUser(models.RoleModerator)
	in := validChallengeInput()
	in.EndDate = "2026-02-28"
	_, err = svc.Create(modCtx, in)
	var domainErr *apperrors.DomainError
	assert.True(t, errors.As(err, &domainErr))

	in = validChallengeInput()
	in.StartDate = "March 1"
	_, err = svc.Create(modCtx, in)
	_, ok := apperrors.IsValidation(err)
	assert.True(t, ok)

	assert.Nil(t, repo.created)
}
