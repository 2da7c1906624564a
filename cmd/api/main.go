package main

import (
	"context"

	"go.uber.org/zap"

	"recruitflow/internal/handler"
	"recruitflow/internal/httpserver"
	"recruitflow/internal/notify"
	"recruitflow/internal/repository"
	"recruitflow/internal/service/auth"
	"recruitflow/internal/service/milestone"
	"recruitflow/internal/service/progress"
	"recruitflow/internal/service/review"
	"recruitflow/pkg/config"
	"recruitflow/pkg/db"
	"recruitflow/pkg/logger"
	"recruitflow/pkg/mq"
	"recruitflow/pkg/outbox"
)

func main() {
	zlog := logger.New()
	defer zlog.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		zlog.Fatal("Config load failed", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		zlog.Fatal("Schema setup failed", zap.Error(err))
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zlog.Fatal("MQ publisher initialization failed", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	progressRepo := repository.NewProgressRepository(pool, zlog)
	milestoneRepo := repository.NewMilestoneRepository(pool, zlog)
	applicationRepo := repository.NewApplicationRepository(pool, zlog)
	staffRepo := repository.NewStaffRepository(pool, zlog)
	outboxRepo := outbox.NewRepository(pool)

	// Outbox dispatcher publishes committed events in the background.
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, zlog).
		WithMaxRetries(cfg.Notify.MaxRetries)
	go dispatcher.Start(ctx)

	// Services
	notifier := notify.NewOutboxNotifier(pool, outboxRepo, applicationRepo, staffRepo, zlog)
	engine := review.NewEngine(progressRepo, notifier, zlog)
	initializer := progress.NewInitializer(progressRepo, milestoneRepo, applicationRepo, zlog)
	query := progress.NewQuery(progressRepo, applicationRepo, zlog)
	milestoneSvc := milestone.NewService(milestoneRepo, initializer, zlog)
	authSvc := auth.NewService(staffRepo, cfg.JWT.Secret, zlog)
	replaySvc := outbox.NewReplayService(outboxRepo, publisher)

	// Handlers
	handlers := httpserver.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, zlog),
		Milestone: handler.NewMilestoneHandler(milestoneSvc, zlog),
		Progress:  handler.NewProgressHandler(initializer, query, zlog),
		Review:    handler.NewReviewHandler(engine, zlog),
		Outbox:    handler.NewOutboxHandler(replaySvc, outboxRepo, zlog),
	}

	router := httpserver.NewRouter(handlers, pool, cfg.JWT.Secret, zlog)

	zlog.Info("Starting API server", zap.String("port", cfg.Server.Port))
	if err := router.Run(cfg.Server.Port); err != nil {
		zlog.Fatal("Server start failed", zap.Error(err))
	}
}
