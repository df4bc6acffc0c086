package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/cache"
	"github.com/ekaya-inc/aihub/pkg/models"
)

func TestParticipationRate(t *testing.T) {
	tests := []struct {
		count, total, want int
	}{
		{5, 20, 25},
		{3, 10, 30},
		{0, 0, 0},
		{4, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},  // 12.5 rounds half up
		{1, 200, 1}, // 0.5 rounds half up
		{1, 201, 0},
		{12, 10, 120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParticipationRate(tt.count, tt.total), "%d/%d", tt.count, tt.total)
	}
}

func TestComputeLeaderboard(t *testing.T) {
	berlin := &models.Location{ID: uuid.New(), Name: "Berlin", TotalPeople: 10}
	london := &models.Location{ID: uuid.New(), Name: "London", TotalPeople: 0}
	nyc := &models.Location{ID: uuid.New(), Name: "NYC", TotalPeople: 10}
	paris := &models.Location{ID: uuid.New(), Name: "Paris", TotalPeople: 20}

	got := ComputeLeaderboard(
		[]*models.Location{berlin, london, nyc, paris},
		map[uuid.UUID]int{nyc.ID: 3, paris.ID: 6, berlin.ID: 1, uuid.New(): 9},
	)

	want := []models.LeaderboardEntry{
		{Location: *nyc, SubmissionsCount: 3, ParticipationRate: 30},
		{Location: *paris, SubmissionsCount: 6, ParticipationRate: 30},
		{Location: *berlin, SubmissionsCount: 1, ParticipationRate: 10},
		{Location: *london, SubmissionsCount: 0, ParticipationRate: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeLeaderboard_Empty(t *testing.T) {
	got := ComputeLeaderboard(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLeaderboardService_SingleLocation(t *testing.T) {
	nyc := &models.Location{ID: uuid.New(), Name: "NYC", TotalPeople: 10}
	svc := NewLeaderboardService(
		&mockLocationRepository{locations: []*models.Location{nyc}},
		&mockSubmissionRepository{counts: map[uuid.UUID]int{nyc.ID: 3}},
		cache.Noop{}, 0, zap.NewNop())

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NYC", got[0].Location.Name)
	assert.Equal(t, 3, got[0].SubmissionsCount)
	assert.Equal(t, 30, got[0].ParticipationRate)
}

func TestLeaderboardService_UsesCache(t *testing.T) {
	nyc := &models.Location{ID: uuid.New(), Name: "NYC", TotalPeople: 10}
	locations := &mockLocationRepository{locations: []*models.Location{nyc}}
	c := newMemoryCache()
	svc := NewLeaderboardService(locations,
		&mockSubmissionRepository{counts: map[uuid.UUID]int{nyc.ID: 5}}, c, 0, zap.NewNop())

	first, err := svc.Get(context.Background())
	require.NoError(t, err)

	// A failing repository is not consulted while the cache holds a value.
	locations.listErr = errors.New("db down")
	second, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	svc.Invalidate(context.Background())
	_, err = svc.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, c.deletes)
}
