package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/config"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/database"
	kafkainfra "github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/kafka"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/logger"
	redisinfra "github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/redis"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/security"
	miniostore "github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/storage/minio"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/telemetry"
	postgresrepo "github.com/DrynaaCode/vegedex-v2-tsc/internal/repository/postgres"
	redisrepo "github.com/DrynaaCode/vegedex-v2-tsc/internal/repository/redis"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/routes"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) wire(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tp

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if cfg.Postgres.EnsureSchema {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("database schema ensured")
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	images, err := miniostore.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}

	tokens, err := security.NewHMACTokenIssuer(security.TokenIssuerConfig{
		Secret:    []byte(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		AccessTTL: cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := telemetry.NewDomainMetrics(registry)
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	audit := usecase.NewAuditTrail(repos.Audit, a.auditPublisher()).WithMetrics(domainMetrics)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = 15 * time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.KeyPrefix + ":rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	strength := security.NewAccountPasswordValidator(cfg.Auth.MinPasswordScore)

	authService := usecase.NewAuthService(repos.Accounts, hasher, tokens, strength, audit, usecase.AuthOptions{
		LoginFailureMinDelay: cfg.Auth.LoginFailureMinDelay,
		LoginFailureMaxDelay: cfg.Auth.LoginFailureMaxDelay,
	}, log).WithMetrics(domainMetrics)
	resetService := usecase.NewPasswordResetService(repos.Accounts, hasher, audit, usecase.PasswordResetOptions{
		TokenTTL:            cfg.Auth.ResetTokenTTL,
		UnknownAccountDelay: cfg.Auth.ForgotPasswordDelay,
	}, log)
	profileService := usecase.NewProfileService(repos.Accounts, audit, log)
	adminService := usecase.NewAdminService(repos.Accounts, audit, log)
	plantService := usecase.NewPlantService(repos.Plants, images, cfg.HTTP.MaxUploadBytes, log).WithMetrics(domainMetrics)

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Tokens:      tokens,
		Accounts:    repos.Accounts,
		RateLimiter: rateLimiter,
		Tracer:      tp.Tracer("vegedex/http"),
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Database:    pool,
		Cache:       redisClient,
		Storage:     images,
		Services: routes.ServiceSet{
			Auth:          authService,
			PasswordReset: resetService,
			Profiles:      profileService,
			Admin:         adminService,
			Plants:        plantService,
		},
	})
	return nil
}

// auditPublisher streams audit entries to Kafka when brokers are configured
// and falls back to logging them otherwise.
func (a *Application) auditPublisher() port.AuditPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka audit publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewAuditPublisher(producer, a.cfg.App)
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
		IdleTimeout:       a.cfg.HTTP.IdleTimeout,
	}

	a.logger.Info("starting vegedex API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("server stopped")
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases resources in reverse order of acquisition.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
