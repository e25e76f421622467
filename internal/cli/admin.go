package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposaldesk/internal/config"
	"proposaldesk/internal/logging"
	"proposaldesk/internal/proposal"
	"proposaldesk/internal/search"
	"proposaldesk/internal/store"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Apply *.up.sql migrations from the migrations directory to DATABASE_URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return errors.New("DATABASE_URL is not set")
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			applied, err := store.ApplyMigrations(ctx, db, dir, logger)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %d migration(s) applied\n", applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}

// ReindexCmd returns the reindex command
func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Push every proposal and its review history to Meilisearch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.MeiliURL) == "" {
				return errors.New("MEILI_URL is not set")
			}
			if !cfg.UsesPostgres() {
				return errors.New("DATABASE_URL is not set")
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()

			docs, closeStore, err := store.Connect(ctx, cfg.DatabaseURL, cfg.MigrationsDir, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
			defer meili.Close()
			if !meili.Healthy() {
				return fmt.Errorf("meilisearch at %s is not reachable", cfg.MeiliURL)
			}
			reader := proposal.NewReader(docs)
			n, err := search.NewService(meili, search.NewStoreSearcher(reader), logger).Reindex(ctx, reader)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %d proposal(s) indexed\n", n)
			return nil
		},
	}
	return cmd
}

func loadEnv() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, "console", "proposalctl")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
