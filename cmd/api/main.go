package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/egovauthenticator/api/internal/application/extraction"
	"github.com/egovauthenticator/api/internal/application/remoteverify"
	"github.com/egovauthenticator/api/internal/application/user"
	"github.com/egovauthenticator/api/internal/application/verification"
	"github.com/egovauthenticator/api/internal/config"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/infrastructure/awscfg"
	"github.com/egovauthenticator/api/internal/infrastructure/dynamo"
	"github.com/egovauthenticator/api/internal/infrastructure/gemini"
	jwtinfra "github.com/egovauthenticator/api/internal/infrastructure/jwt"
	natsinfra "github.com/egovauthenticator/api/internal/infrastructure/nats"
	"github.com/egovauthenticator/api/internal/infrastructure/philsys"
	"github.com/egovauthenticator/api/internal/infrastructure/postgres"
	s3infra "github.com/egovauthenticator/api/internal/infrastructure/s3"
	"github.com/egovauthenticator/api/internal/infrastructure/sns"
	"github.com/egovauthenticator/api/internal/pkg/cache"
	"github.com/egovauthenticator/api/internal/pkg/inflight"
	"github.com/egovauthenticator/api/internal/pkg/logger"
	"github.com/egovauthenticator/api/internal/platform/metrics"
	transporthttp "github.com/egovauthenticator/api/internal/transport/http"
	"github.com/egovauthenticator/api/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	if cfg.DynamoBootstrap {
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)
	}
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications)
	apiKeyRepo := dynamo.NewAPIKeyRepo(dynamoClient, cfg.DynamoTables.APIKeys)

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	references := postgres.NewReferenceRepo(pool, zl)
	if err := references.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}

	jwtProvider, err := jwtinfra.LoadProvider(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath,
		time.Duration(cfg.JWTExpiryDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	extractionCache := cache.New[string, domain.ExtractionResult](cfg.Extraction.CacheTTL)
	extractionCache.StartJanitor(ctx, cfg.Extraction.JanitorInterval)

	var refImages []gemini.Image
	if cfg.Extraction.ReferenceImageDir != "" {
		refImages, err = extraction.LoadReferenceImages(cfg.Extraction.ReferenceImageDir)
		if err != nil {
			zl.Warn("sex reference images not loaded", zap.Error(err))
		}
	}

	extractor := extraction.NewService(extraction.ServiceDeps{
		Provider: gemini.NewClient(gemini.Config{
			BaseURL:     cfg.Extraction.BaseURL,
			Provider:    cfg.Extraction.Provider,
			Keys:        apiKeyRepo,
			FallbackKey: cfg.Extraction.FallbackAPIKey,
			HTTPClient:  &http.Client{Timeout: cfg.Extraction.RequestTimeout},
			Logger:      zl,
		}),
		Models:          cfg.Extraction.Models,
		ReferenceImages: refImages,
		Cache:           extractionCache,
		Inflight:        inflight.New[domain.ExtractionResult](cfg.Extraction.CallTimeout),
		Metrics:         m,
		Logger:          zl,
	})

	sessions := cache.New[string, string](cfg.Verifier.SessionTTL)
	results := cache.New[string, json.RawMessage](cfg.Verifier.ResultTTL)
	results.StartJanitor(ctx, cfg.Verifier.ResultTTL)
	remote := remoteverify.NewService(remoteverify.ServiceDeps{
		Client: philsys.NewClient(philsys.Config{
			CookieURL: cfg.Verifier.CookieURL,
			VerifyURL: cfg.Verifier.VerifyURL,
			Timeout:   cfg.Verifier.FetchTimeout,
		}),
		Sessions: sessions,
		Results:  results,
		Metrics:  m,
		Logger:   zl,
	})

	events, closeEvents, err := newEventPublisher(cfg, awsCfg, zl)
	if err != nil {
		return err
	}
	defer closeEvents()

	verificationSvc := verification.NewService(verification.ServiceDeps{
		Repo:       verificationRepo,
		References: references,
		Extractor:  extractor,
		Remote:     remote,
		Archive:    s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName),
		Events:     events,
		Metrics:    m,
		Logger:     zl,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    userRepo,
		JWTProvider: jwtProvider,
		Logger:      zl,
	})

	router, closeRouter := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserService:         userSvc,
		VerificationService: verificationSvc,
		JWTProvider:         jwtProvider,
		Gatherer:            prometheus.DefaultGatherer,
		Logger:              zl,
		ReadinessChecks: map[string]handler.ReadinessCheck{
			"postgres": pool.Ping,
		},
	})
	defer closeRouter()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Extraction runs several model calls in sequence.
		WriteTimeout: cfg.Extraction.CallTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zl.Info("server stopped")
	return nil
}

// newEventPublisher returns nil when no events backend is configured.
func newEventPublisher(cfg *config.Config, awsCfg aws.Config, zl *zap.Logger) (verification.EventPublisher, func(), error) {
	switch cfg.Events.Backend {
	case "sns":
		if cfg.Events.SNSTopicARN == "" {
			zl.Warn("EVENTS_BACKEND=sns without SNS_TOPIC_ARN, events disabled")
			return nil, func() {}, nil
		}
		client := sns.NewClient(awsCfg, cfg.AWSEndpointURL)
		return sns.NewPublisher(client, cfg.Events.SNSTopicARN), func() {}, nil
	case "nats":
		p, err := natsinfra.Connect(cfg.Events.NATSURL, cfg.Events.NATSSubject, zl)
		if err != nil {
			return nil, nil, fmt.Errorf("nats: %w", err)
		}
		return p, p.Close, nil
	default:
		return nil, func() {}, nil
	}
}
