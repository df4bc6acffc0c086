package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/cache"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
)

const leaderboardCacheKey = "leaderboard:v1"

// ParticipationRate is round(count*100/total) with halves rounded away from zero,
// and 0 when total is 0.
func ParticipationRate(count, total int) int {
	if total <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(count) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(rate.IntPart())
}

// ComputeLeaderboard builds one entry per location. locations must be ordered by
// name; ties in rate keep that order.
func ComputeLeaderboard(locations []*models.Location, approvedByLocation map[uuid.UUID]int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(locations))
	for _, loc := range locations {
		count := approvedByLocation[loc.ID]
		entries = append(entries, models.LeaderboardEntry{
			Location:          *loc,
			SubmissionsCount:  count,
			ParticipationRate: ParticipationRate(count, loc.TotalPeople),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ParticipationRate > entries[j].ParticipationRate
	})
	return entries
}

// LeaderboardService ranks locations by participation.
type LeaderboardService interface {
	Get(ctx context.Context) ([]models.LeaderboardEntry, error)
	// Invalidate drops the cached ranking. Failures are logged, not returned.
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	locations   repositories.LocationRepository
	submissions repositories.SubmissionRepository
	cache       cache.Cache
	ttl         time.Duration
	logger      *zap.Logger
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(
	locations repositories.LocationRepository,
	submissions repositories.SubmissionRepository,
	c cache.Cache,
	ttl time.Duration,
	logger *zap.Logger,
) LeaderboardService {
	return &leaderboardService{
		locations:   locations,
		submissions: submissions,
		cache:       c,
		ttl:         ttl,
		logger:      logger,
	}
}

func (s *leaderboardService) Get(ctx context.Context) (entries []models.LeaderboardEntry, err error) {
	ctx, span := tracer.StartSpan(ctx, "LeaderboardService.Get")
	defer func() { endSpan(span, err) }()

	var cached []models.LeaderboardEntry
	hit, err := s.cache.GetJSON(ctx, leaderboardCacheKey, &cached)
	if err != nil {
		s.logger.Warn("Failed to read cached leaderboard", zap.Error(err))
	} else if hit {
		return cached, nil
	}

	locations, err := s.locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	counts, err := s.submissions.CountApprovedByLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	entries = ComputeLeaderboard(locations, counts)

	if err := s.cache.SetJSON(ctx, leaderboardCacheKey, entries, s.ttl); err != nil {
		s.logger.Warn("Failed to cache leaderboard", zap.Error(err))
	}
	return entries, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, leaderboardCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
	}
}

var _ LeaderboardService = (*leaderboardService)(nil)
