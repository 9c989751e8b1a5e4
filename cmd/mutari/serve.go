package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mutari/internal/db"
	"mutari/internal/geo"
	"mutari/internal/live"
	"mutari/internal/metrics"
	"mutari/internal/server"
	"mutari/internal/storage"
	"mutari/internal/store"
	"mutari/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the schema before serving",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadDatabaseConfig(cCtx)
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cCtx.Bool("migrate") {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	requestRepo := store.NewRequestRepository(pool)
	offerRepo := store.NewOfferRepository(pool)
	companyRepo := store.NewCompanyRepository(pool)
	customerRepo := store.NewCustomerRepository(pool)
	chatRepo := store.NewChatRepository(pool)

	source := live.NewSource(requestRepo, offerRepo, logger)
	go func() {
		if err := source.Listen(ctx, pool); err != nil {
			logger.WithError(err).Error("live listener stopped")
		}
	}()

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initilaize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwk with cache: %w", err)
	}

	media, closeMedia, err := newMediaRemover(ctx, config, awsConfig)
	if err != nil {
		return err
	}
	defer closeMedia()

	m := metrics.New()

	var redisClient *redis.Client
	if config.DraftBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	deps := server.Deps{
		Requests:  requestRepo,
		Offers:    offerRepo,
		Companies: companyRepo,
		Customers: customerRepo,
		Chat:      chatRepo,
		Live:      source,
		Verifier:  server.NewJWKSVerifier(jwkCache, jwksURL),
		Database:  pool,
		Media:     media,
		Mailer:    newMailer(config, logger, m),
		Metrics:   m,
		Geo:       geo.NewIndex(),
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	srv, err := server.New(config, logger, deps)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

// newMediaRemover picks the object store backing request photos. The
// returned close func is always safe to call.
func newMediaRemover(ctx context.Context, config *types.Config, awsConfig aws.Config) (storage.Remover, func(), error) {
	switch config.MediaBackend {
	case "gcs":
		remover, err := storage.NewGCSRemover(ctx, config.GCSBucket, config.GCSCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return remover, func() { _ = remover.Close() }, nil
	case "s3":
		if config.S3BucketName == "" {
			return nil, nil, fmt.Errorf("set S3_BUCKET_NAME for the s3 media backend")
		}
		return storage.NewS3Remover(s3.NewFromConfig(awsConfig), config.S3BucketName), func() {}, nil
	case "", "none":
		return storage.NopRemover{}, func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown MEDIA_BACKEND %q", config.MediaBackend)
}
