package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	libraryapp "github.com/courselibrary/backend/internal/application/library"
	"github.com/courselibrary/backend/internal/infrastructure/auth"
	"github.com/courselibrary/backend/internal/infrastructure/cache"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/courselibrary/backend/internal/infrastructure/logger"
	"github.com/courselibrary/backend/internal/infrastructure/migration"
	"github.com/courselibrary/backend/internal/infrastructure/persistence"
	"github.com/courselibrary/backend/internal/infrastructure/telemetry"
	"github.com/courselibrary/backend/internal/interfaces/http/middleware"
	"github.com/courselibrary/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Course Library API
//	@version		1.0
//	@description	Authors, their courses and bulk author collections

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const (
	shutdownTimeout     = 30 * time.Second
	rateLimiterSweepInt = time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// OTLP log export comes first so the logger can tee into it
	lp, err := telemetry.NewLoggerProvider(context.Background(), cfg.Telemetry, cfg.App.Env)
	if err != nil {
		panic("Failed to initialize log export: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, lp.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()
	defer logger.Sync(log)

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting Course Library API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Schema
	if err := prepareSchema(&cfg.Database, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	// Database with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         tp.Enabled() && cfg.Telemetry.DBTraceEnabled,
		DBSystem:        dbSystem(cfg.Database.Driver),
		LogFullSQL:      cfg.App.IsDevelopment(),
		SlowQueryThresh: cfg.Database.SlowThreshold,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Metrics: Prometheus scrape endpoint and/or OTLP push
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled || mp.Enabled() {
		metrics = telemetry.NewMetrics("library")
	}
	if mp.Enabled() {
		if err := metrics.ExportTo(mp.Meter()); err != nil {
			log.Fatal("Failed to register OTLP instruments", zap.Error(err))
		}
	}

	// Repositories and the unit of work store
	store := telemetry.InstrumentStore(persistence.NewGormStore(db.DB), metrics)
	authorRepo := persistence.NewGormAuthorRepository(db.DB)
	courseRepo := persistence.NewGormCourseRepository(db.DB)

	// Services
	mapper := libraryapp.NewStructMapper()
	collectionOpts := []libraryapp.CollectionOption{
		libraryapp.WithCollectionLogger(log.Named("authorcollections")),
	}
	if metrics != nil {
		collectionOpts = append(collectionOpts, libraryapp.WithReplayRecorder(metrics))
	}
	if cfg.Idempotency.Enabled {
		replayStore, err := cache.NewReplayStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := replayStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		collectionOpts = append(collectionOpts,
			libraryapp.WithReplayStore(replayStore, cfg.Idempotency.TTL),
			libraryapp.WithReplayLockTTL(cfg.Idempotency.LockTTL),
		)
	}

	deps := router.Dependencies{
		Logger:            log,
		DB:                db,
		Metrics:           metrics,
		AuthorCollections: libraryapp.NewAuthorCollectionService(mapper, store, authorRepo, collectionOpts...),
		Authors:           libraryapp.NewAuthorService(mapper, store, authorRepo),
		Courses:           libraryapp.NewCourseService(mapper, store, authorRepo, courseRepo),
	}
	if cfg.Auth.Enabled {
		deps.JWT = auth.NewJWTService(cfg.Auth)
	}
	if cfg.HTTP.RateLimitEnabled {
		deps.RateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		deps.RateLimiter.StartJanitor(ctx, rateLimiterSweepInt)
	}

	engine, err := router.NewEngine(cfg, deps)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// prepareSchema applies pending migrations. With ResetOnStartup every
// migration is rolled back first; a failed reset is logged and startup
// continues with whatever schema is present.
func prepareSchema(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := migration.OpenDB(cfg)
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, cfg.Driver, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()

	if cfg.ResetOnStartup {
		log.Warn("Resetting database on startup")
		if err := m.Reset(); err != nil {
			log.Error("Database reset failed, continuing with existing schema", zap.Error(err))
		}
		return nil
	}
	return m.Up()
}

func dbSystem(driver string) string {
	if driver == config.DriverPostgres {
		return "postgresql"
	}
	return driver
}
