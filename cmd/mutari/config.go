package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"mutari/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"
)

// loadConfig reads .env when present, then the environment.
func loadConfig(c *cli.Context) (*types.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := new(types.Config)
	if err := envconfig.Process(c.String("env-prefix"), cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if cfg.ServerPort == 0 {
		cfg.ServerPort = 8080
	}

	if cfg.ReadTimeoutSec == 0 {
		cfg.ReadTimeoutSec = 10
	}

	if cfg.WriteTimeoutSec == 0 {
		cfg.WriteTimeoutSec = 15
	}

	return cfg, nil
}

func loadDatabaseConfig(c *cli.Context) (*types.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	return cfg, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
