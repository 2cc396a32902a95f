package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/logging"
	store "github.com/streamreact/companion/internal/repository"
	"github.com/streamreact/companion/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load triggers, products and settings fixtures",
	Long: `Writes fixture rows into the database. Rows that already exist are left
alone, so seeding twice is harmless. Without --file the built-in fixtures
are used.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML fixtures file (defaults to the built-in set)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	fixtures, err := loadFixtures(seedFile)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	res, err := seed.Apply(cmd.Context(), db, fixtures)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	log.Info("seed complete",
		zap.String("database", cfg.DatabaseURL),
		zap.Int("triggers", res.Triggers),
		zap.Int("products", res.Products),
		zap.Int("settings", res.Settings),
	)
	return nil
}

func loadFixtures(path string) (*seed.Fixtures, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
