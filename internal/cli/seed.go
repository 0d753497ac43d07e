package cli

import (
	"cx-lms-service/internal/config"
	"cx-lms-service/internal/infra/postgres"
	"cx-lms-service/internal/logging"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads the question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the quiz question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := runMigrations(ctx, cfg, logger); err != nil {
				return err
			}
			questions, err := loadQuestions(cfg)
			if err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.SaveQuestions(ctx, pool, questions); err != nil {
				return err
			}
			logger.Info("question bank seeded", zap.Int("questions", len(questions)))
			return nil
		},
	}
}
