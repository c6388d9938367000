package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/database"
	kafkainfra "github.com/wwicak/kom-sabu-sub000/internal/infra/kafka"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/logger"
	redisinfra "github.com/wwicak/kom-sabu-sub000/internal/infra/redis"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/security"
	"github.com/wwicak/kom-sabu-sub000/internal/repository/memory"
	postgresrepo "github.com/wwicak/kom-sabu-sub000/internal/repository/postgres"
	redisrepo "github.com/wwicak/kom-sabu-sub000/internal/repository/redis"
	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/middleware"
	"github.com/wwicak/kom-sabu-sub000/internal/transport/http/routes"
	"github.com/wwicak/kom-sabu-sub000/internal/usecase"
)

// Application owns the gateway's wiring and lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client

	rateLimits port.RateLimitStore
	csrfStore  port.CsrfTokenStore

	producer *kafkainfra.Producer
}

// New wires the gateway from configuration. When Redis is not configured the
// stores fall back to in-process implementations, which keeps single-node
// deployments dependency-free.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	app := &Application{
		cfg:    cfg,
		logger: log,
		pool:   pool,
	}

	if cfg.Redis.Host != "" {
		redisClient, err := redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		app.redis = redisClient
		app.rateLimits = redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix)
		app.csrfStore = redisrepo.NewCsrfTokenStore(redisClient.Client(), cfg.Redis.CsrfPrefix)
		log.Info("using redis-backed security stores")
	} else {
		app.rateLimits = memory.NewRateLimitStore()
		app.csrfStore = memory.NewCsrfTokenStore()
		log.Info("redis not configured, using in-process security stores")
	}

	var auditSink port.AuditSink
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub audit sink", zap.Error(err))
			auditSink = kafkainfra.NewStubAuditSink(log)
		} else {
			app.producer = producer
			auditSink = kafkainfra.NewAuditPublisher(producer, cfg.App, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub audit sink")
		auditSink = kafkainfra.NewStubAuditSink(log)
	}

	verifier, err := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		app.closeInfra()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	users := postgresrepo.NewUserRepository(pool)
	authService := usecase.NewAuthService(verifier, users)
	auditRecorder := usecase.NewAuditRecorder(auditSink, port.SystemClock, log)

	gateway, err := middleware.NewRequestGateway(cfg.Security, cfg.App.TLS, log)
	if err != nil {
		app.closeInfra()
		return nil, fmt.Errorf("init request gateway: %w", err)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		app.closeInfra()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	deps := routes.Dependencies{
		Config:        cfg,
		Logger:        log,
		Gateway:       gateway,
		RateLimiter:   middleware.NewRateLimiter(app.rateLimits, log).WithAudit(auditRecorder),
		CsrfGuard:     middleware.NewCsrfGuard(app.csrfStore, cfg.Security.Csrf, log).WithAudit(auditRecorder),
		Authenticator: middleware.NewAuthenticator(authService, auditRecorder),
		Metrics:       metrics,
		Database:      pool,
	}
	if app.redis != nil {
		deps.Cache = app.redis
	}

	app.engine = routes.Register(deps)

	return app, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.closeInfra()

	janitorDone := a.startJanitor(ctx)
	defer func() { <-janitorDone }()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting gateway",
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

// startJanitor periodically sweeps expired entries from the in-process
// stores. The Redis backends expire keys natively, so their sweeps are cheap
// no-ops.
func (a *Application) startJanitor(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	interval := a.cfg.Security.SweepInterval
	if interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

				if removed, err := a.rateLimits.Sweep(sweepCtx, now.UTC()); err != nil {
					a.logger.Warn("rate limit sweep failed", zap.Error(err))
				} else if removed > 0 {
					a.logger.Debug("rate limit sweep", zap.Int("removed", removed))
				}

				if removed, err := a.csrfStore.Sweep(sweepCtx, now.UTC()); err != nil {
					a.logger.Warn("csrf sweep failed", zap.Error(err))
				} else if removed > 0 {
					a.logger.Debug("csrf sweep", zap.Int("removed", removed))
				}

				cancel()
			}
		}
	}()

	return done
}

func (a *Application) closeInfra() {
	if a.producer != nil {
		_ = a.producer.Close()
		a.producer = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
