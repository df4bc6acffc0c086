package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
)

// homeLeaderboardSize is how many locations the home page previews.
const homeLeaderboardSize = 3

// HomePreview is the data behind the landing page.
type HomePreview struct {
	Challenge   *models.Challenge         `json:"challenge"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// HomeService assembles the landing page.
type HomeService interface {
	// Get fetches the newest open challenge and the top locations concurrently.
	Get(ctx context.Context) (*HomePreview, error)
}

type homeService struct {
	challenges  repositories.ChallengeRepository
	leaderboard LeaderboardService
	clock       Clock
}

// NewHomeService creates a new home service.
func NewHomeService(challenges repositories.ChallengeRepository, leaderboard LeaderboardService, clock Clock) HomeService {
	return &homeService{
		challenges:  challenges,
		leaderboard: leaderboard,
		clock:       clock,
	}
}

func (s *homeService) Get(ctx context.Context) (*HomePreview, error) {
	preview := &HomePreview{Leaderboard: make([]models.LeaderboardEntry, 0)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		active, err := s.challenges.ListActive(gctx, s.clock.today(), 1)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			preview.Challenge = active[0]
		}
		return nil
	})
	g.Go(func() error {
		entries, err := s.leaderboard.Get(gctx)
		if err != nil {
			return err
		}
		if len(entries) > homeLeaderboardSize {
			entries = entries[:homeLeaderboardSize]
		}
		preview.Leaderboard = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preview, nil
}

var _ HomeService = (*homeService)(nil)
