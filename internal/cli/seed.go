package cli

import (
	"log"

	"github.com/spf13/cobra"

	"secaware-training-service/internal/catalog"
	"secaware-training-service/internal/config"
	"secaware-training-service/internal/infra/postgres"
)

// NewSeedCmd loads the embedded item catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate and load the built-in item catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := migrateDB(ctx, db); err != nil {
				return err
			}
			items, err := catalog.Load()
			if err != nil {
				return err
			}
			n, err := postgres.SeedItems(ctx, db, items)
			if err != nil {
				return err
			}
			log.Printf("seeded %d items", n)
			return nil
		},
	}
}
