// Command aihubctl runs administrative tasks against the aihub database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/config"
	"github.com/ekaya-inc/aihub/pkg/database"
	"github.com/ekaya-inc/aihub/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// Global flags
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aihubctl",
		Short:         "Administrative tasks for the AI hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadFile(configPath, Version)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err = logging.NewLogger(cfg.Env, cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")

	root.AddCommand(newMigrateCmd(), newSetRoleCmd(), newSeedLocationsCmd())
	return root
}

// connect opens the pgx pool used by the data commands.
func connect(ctx context.Context) (*database.DB, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
