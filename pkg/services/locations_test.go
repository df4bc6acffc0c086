package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
)

func TestLocationService_Create(t *testing.T) {
	repo := &mockLocationRepository{}
	lb := &recordingLeaderboard{}
	svc := NewLocationService(repo, lb, zap.NewNop())

	userCtx, _ := asUser(models.RoleUser)
	_, err := svc.Create(userCtx, &CreateLocationInput{Name: "NYC", TotalPeople: 10})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	modCtx, _ := asUser(models.RoleModerator)
	_, err = svc.Create(modCtx, &CreateLocationInput{Name: " ", TotalPeople: 0})
	verr, ok := apperrors.IsValidation(err)
	require.True(t, ok)
	assert.Len(t, verr.Issues, 2)

	loc, err := svc.Create(modCtx, &CreateLocationInput{Name: " NYC ", TotalPeople: 10})
	require.NoError(t, err)
	assert.Equal(t, "NYC", loc.Name)
	assert.Equal(t, 1, lb.invalidations)
}

func TestLocationService_Create_Conflict(t *testing.T) {
	repo := &mockLocationRepository{createErr: apperrors.ErrConflict}
	svc := NewLocationService(repo, &recordingLeaderboard{}, zap.NewNop())
	modCtx, _ := asUser(models.RoleModerator)

	_, err := svc.Create(modCtx, &CreateLocationInput{Name: "NYC", TotalPeople: 10})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLocationService_Seed(t *testing.T) {
	repo := &mockLocationRepository{}
	lb := &recordingLeaderboard{}
	svc := NewLocationService(repo, lb, zap.NewNop())

	n, err := svc.Seed(context.Background(), []CreateLocationInput{
		{Name: "NYC", TotalPeople: 10},
		{Name: "Berlin", TotalPeople: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, repo.upserted, 2)
	assert.Equal(t, 1, lb.invalidations)

	n, err = svc.Seed(context.Background(), []CreateLocationInput{{Name: "", TotalPeople: 1}})
	assert.Error(t, err)
	assert.Zero(t, n)
}
