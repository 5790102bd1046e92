// Command engine runs the student-onboarding workflow engine worker: the
// timer service, the event bus with its notification handler, and the
// optional PostgreSQL archive and Redis fan-out.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edbridge/onboarding-engine/config"
	"github.com/edbridge/onboarding-engine/internal/application/engine"
	"github.com/edbridge/onboarding-engine/internal/application/eventhandler"
	"github.com/edbridge/onboarding-engine/internal/domain/notification"
	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/messaging"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/persistence/memory"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/persistence/postgres"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/persistence/redis"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/service"
	"github.com/edbridge/onboarding-engine/internal/infrastructure/timer"
	"github.com/edbridge/onboarding-engine/pkg/idgen"
	"github.com/edbridge/onboarding-engine/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting", "app", cfg.App.Name, "env", cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("engine terminated with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Archive is optional: without DATABASE_URL terminated instances live
	// only in the in-memory arena.
	var archive workflow.ArchiveRepository
	if cfg.Database.URL != "" {
		pgConfig := postgres.DefaultConfig()
		pgConfig.URL = cfg.Database.URL
		pgConfig.MaxConns = int32(cfg.Database.MaxConns)
		pgConfig.QueryTimeout = cfg.Database.QueryTimeout

		conn, err := postgres.Connect(ctx, pgConfig)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.Migrate(ctx); err != nil {
			return err
		}
		archive = postgres.NewArchiveRepository(conn)
		logger.Info("workflow archive enabled")
	}

	bus, err := newEventBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	store := memory.NewInstanceStore()
	ids := idgen.New()
	directory := service.NewSubjectDirectory(ids, logger)

	var eng *engine.Engine
	timers := timer.NewService(func(processID string, stage workflow.Stage) {
		eng.OnTimeout(context.Background(), processID, stage)
	}, timer.Config{
		Logger:     logger,
		Resolution: cfg.Timer.Resolution,
	})

	eng, err = engine.New(engine.Dependencies{
		Store:    store,
		Lookup:   store,
		Archive:  archive,
		Timers:   timers,
		Bus:      bus,
		IDs:      ids,
		Subjects: directory,
	}, engine.Config{Logger: logger})
	if err != nil {
		return err
	}

	dispatcher := service.NewDispatcher(service.LogChannel(logger), service.DispatcherConfig{
		Retries: retry.Config{
			MaxAttempts:  cfg.Notification.MaxAttempts,
			InitialDelay: cfg.Notification.RetryDelay,
		},
		Bus:    bus,
		Logger: logger,
	})
	handler := eventhandler.NewNotificationHandler(
		notification.DefaultRegistry(), directory, dispatcher, logger)
	if err := handler.Register(bus); err != nil {
		return err
	}

	timers.Start(ctx)
	defer timers.Stop()

	logger.Info("workflow engine ready",
		"registration_timeout", cfg.Workflow.RegistrationTimeout,
		"post_assessment_timeout", cfg.Workflow.PostAssessmentTimeout,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

func newEventBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (shared.EventBus, error) {
	localConfig := messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.EventBus.AsyncMode,
		WorkerPoolSize: cfg.EventBus.WorkerPoolSize,
		Logger:         logger,
	}

	if cfg.Redis.URL == "" {
		logger.Info("using in-memory event bus")
		return messaging.NewInMemoryEventBus(localConfig), nil
	}

	redisConfig := redis.DefaultConfig()
	redisConfig.URL = cfg.Redis.URL
	client, err := redis.NewPubSubClient(ctx, redisConfig)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         client,
		ChannelName:    cfg.Redis.ChannelName,
		LocalBusConfig: localConfig,
		Logger:         logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info("using redis event bus", "channel", cfg.Redis.ChannelName)
	return bus, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.App.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
