package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/config"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/database"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/identity"
	kafkainfra "github.com/NathiDhliso/ReelApps-sub001/internal/infra/kafka"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/logger"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/navigation"
	redisinfra "github.com/NathiDhliso/ReelApps-sub001/internal/infra/redis"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/security"
	"github.com/NathiDhliso/ReelApps-sub001/internal/infra/telemetry"
	postgresrepo "github.com/NathiDhliso/ReelApps-sub001/internal/repository/postgres"
	redisrepo "github.com/NathiDhliso/ReelApps-sub001/internal/repository/redis"
	"github.com/NathiDhliso/ReelApps-sub001/internal/transport/http/middleware"
	"github.com/NathiDhliso/ReelApps-sub001/internal/transport/http/routes"
	"github.com/NathiDhliso/ReelApps-sub001/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	csrfGuard *usecase.CSRFGuard
	producer  *kafkainfra.Producer
	tracer    *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.App.Name, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	activityRepo := postgresrepo.NewActivityRepository(pool)
	storage := redisrepo.NewStorageRepository(redisClient.Client(), cfg.Redis.StoragePrefix)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			producer = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	identityClient := identity.NewClient(cfg.Identity, log)

	csrfGuard := usecase.NewCSRFGuard(cfg.CSRF, storage, log)
	if _, err := csrfGuard.Initialize(ctx); err != nil {
		log.Warn("csrf guard initialization failed", zap.Error(err))
	}
	protectedProvider := csrfGuard.Wrap(identityClient)

	navigator := navigation.NewLogNavigator(log)
	ssoManager := usecase.NewSSOManager(cfg.SSO, protectedProvider, identityClient, storage, navigator, log)

	passwordValidator := security.DefaultPasswordValidator()
	flows := usecase.NewSecureAuthFlows(
		protectedProvider,
		activityRepo,
		eventPublisher,
		passwordValidator,
		cfg.Activity.TTL,
		cfg.Identity.ResetRedirectURL,
		log,
	)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "sso:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.MetricsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			SSO:      ssoManager,
			Flows:    flows,
			CSRF:     csrfGuard,
			Identity: protectedProvider,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		csrfGuard: csrfGuard,
		producer:  producer,
		tracer:    tracer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.csrfGuard != nil {
			teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.csrfGuard.Teardown(teardownCtx)
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting SSO gateway",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
