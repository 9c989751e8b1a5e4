package main

import (
	"context"
	"fmt"

	"mutari/internal/db"
	"mutari/internal/seed"
	"mutari/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo companies, customers and requests",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "requests",
			Aliases: []string{"n"},
			Usage:   "Number of fake requests to create",
			Value:   20,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Cancel previously seeded requests first",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadDatabaseConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		// Connect to database
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		requestRepo := store.NewRequestRepository(pool)
		offerRepo := store.NewOfferRepository(pool)

		logrus.Info("Seeding companies...")
		if err := seed.SeedCompanies(ctx, store.NewCompanyRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed companies: %w", err)
		}

		logrus.Info("Seeding customers...")
		if err := seed.SeedCustomers(ctx, store.NewCustomerRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed customers: %w", err)
		}

		if c.Bool("reset") {
			if err := seed.ResetFakeRequests(ctx, pool); err != nil {
				return err
			}
		}

		logrus.Info("Seeding requests...")
		seeder := &seed.RequestSeeder{
			Requests: requestRepo,
			Offers:   offerRepo,
			Chat:     store.NewChatRepository(pool),
		}
		if err := seeder.SeedFakeRequests(ctx, c.Int("requests")); err != nil {
			return fmt.Errorf("failed to seed requests: %w", err)
		}

		logrus.Info("Seed complete")

		return nil
	},
}
