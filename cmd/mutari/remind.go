package main

import (
	"context"
	"fmt"
	"time"

	"mutari/internal/db"
	"mutari/internal/remind"
	"mutari/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var remindCommand = &cli.Command{
	Name:  "remind",
	Usage: "Email customers whose offers are waiting for an answer",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "after",
			Usage: "Remind about offers older than this (defaults to REMINDER_AFTER_HOURS)",
		},
	},
	Action: func(c *cli.Context) error {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})

		cfg, err := loadDatabaseConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		after := c.Duration("after")
		if after == 0 {
			after = time.Duration(cfg.ReminderAfterHours) * time.Hour
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		runner := remind.New(store.NewRequestRepository(pool), newMailer(cfg, logger, nil), cfg.PublicURL, logger)

		report, err := runner.Run(ctx, after)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"requests": report.Requests,
			"sent":     report.Sent,
			"failed":   report.Failed,
		}).Info("reminders sent")

		return nil
	},
}
