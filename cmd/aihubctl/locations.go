package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/aihub/pkg/cache"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// locationSeed is the YAML layout of a seed file:
//
//	locations:
//	  - name: NYC
//	    total_people: 120
type locationSeed struct {
	Locations []struct {
		Name        string `yaml:"name"`
		TotalPeople int    `yaml:"total_people"`
	} `yaml:"locations"`
}

func newSeedLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-locations <file.yaml>",
		Short: "Create or update locations and their headcount",
		Long: `Upserts every location in a YAML seed file by name. Existing locations
get their headcount updated; nothing is deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			inputs, err := parseLocationSeed(f)
			if err != nil {
				return err
			}

			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			appCache, closeCache := openCache(cmd)
			defer closeCache()

			repo := repositories.NewLocationRepository(db)
			leaderboard := services.NewLeaderboardService(repo, repositories.NewSubmissionRepository(db), appCache, cfg.Cache.LeaderboardTTL, logger)
			locations := services.NewLocationService(repo, leaderboard, logger)

			n, err := locations.Seed(cmd.Context(), inputs)
			if err != nil {
				return fmt.Errorf("location %d (%s): %w", n+1, inputs[n].Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d locations\n", n)
			return nil
		},
	}
}

func parseLocationSeed(r io.Reader) ([]services.CreateLocationInput, error) {
	var seed locationSeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(seed.Locations) == 0 {
		return nil, fmt.Errorf("seed file has no locations")
	}

	inputs := make([]services.CreateLocationInput, 0, len(seed.Locations))
	for _, l := range seed.Locations {
		inputs = append(inputs, services.CreateLocationInput{Name: l.Name, TotalPeople: l.TotalPeople})
	}
	return inputs, nil
}

// openCache connects to Redis when configured so seeding can drop the cached
// leaderboard. Redis errors degrade to a no-op cache.
func openCache(cmd *cobra.Command) (cache.Cache, func()) {
	client, err := database.NewRedisClient(cmd.Context(), &cfg.Redis)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; cached leaderboard will expire on its own\n", err)
		return cache.Noop{}, func() {}
	}
	if client == nil {
		return cache.Noop{}, func() {}
	}
	return cache.New(client), func() { _ = client.Close() }
}
