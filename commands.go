package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"supplymarket/internal/config"
	"supplymarket/internal/database"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
)

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			// The SQL migrations are written for postgres.
			if cfg.Database.Driver == "sqlite" {
				err = database.AutoMigrate(db)
			} else {
				err = database.MigrateUp(db)
			}
			if err != nil {
				return err
			}
			log.Println("Database migrated")
			return nil
		},
	}
}

// Fixtures is the layout of a seed file.
type Fixtures struct {
	Regions    []services.RegionInput   `yaml:"regions"`
	Categories []services.CategoryInput `yaml:"categories"`
}

func newSeedCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert regions and categories from a fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fixtures, err := readFixtures(file)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			store := repositories.NewStore(db)
			return seed(cmd.Context(), services.NewCatalogService(store.Regions, store.Categories), fixtures)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.yaml", "fixtures file to load")
	return cmd
}

func readFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	var fixtures Fixtures
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return &fixtures, nil
}

// seed upserts every fixture by name, so running it twice is harmless.
func seed(ctx context.Context, catalog *services.CatalogService, fixtures *Fixtures) error {
	for _, in := range fixtures.Regions {
		region, err := catalog.UpsertRegion(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed region %s: %w", in.Name, err)
		}
		log.Printf("Seeded region: %s (ID: %s)", region.Name, region.ID)
	}
	for _, in := range fixtures.Categories {
		category, err := catalog.UpsertCategory(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", in.Name, err)
		}
		log.Printf("Seeded category: %s (ID: %s)", category.Name, category.ID)
	}
	return nil
}
