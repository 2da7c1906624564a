package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	contracts "recruitflow/contracts/mq"
	"recruitflow/internal/mailer"
	"recruitflow/internal/mqhandler"
	"recruitflow/internal/repository"
	"recruitflow/pkg/circuitbreaker"
	"recruitflow/pkg/config"
	"recruitflow/pkg/db"
	"recruitflow/pkg/logger"
	"recruitflow/pkg/mq"
	"recruitflow/pkg/redis"
	"recruitflow/pkg/util"
)

func main() {
	zlog := logger.New()
	defer zlog.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		zlog.Fatal("Config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		zlog.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, contracts.ReviewNotifyQueue, contracts.ReviewNotifyBindingKey, zlog)
	if err != nil {
		zlog.Fatal("MQ consumer initialization failed", zap.Error(err))
	}
	defer consumer.Close()

	// Poison messages end up in the dead letter queue.
	dlqPublisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zlog.Fatal("DLQ publisher initialization failed", zap.Error(err))
	}
	defer dlqPublisher.Close()

	dlqConn, err := mq.NewConnection(cfg.MQ.URL)
	if err != nil {
		zlog.Fatal("DLQ connection failed", zap.Error(err))
	}
	dlqCh, err := dlqConn.Channel()
	if err != nil {
		zlog.Fatal("DLQ channel failed", zap.Error(err))
	}
	if err := mq.DeclareDLQExchange(dlqCh); err != nil {
		zlog.Fatal("DLQ exchange declaration failed", zap.Error(err))
	}
	for _, key := range []string{
		contracts.RoutingKeyMilestoneApproved,
		contracts.RoutingKeyMilestoneRejected,
		contracts.RoutingKeyMilestoneNeedsChanges,
	} {
		if _, err := mq.DeclareDLQQueue(dlqCh, key); err != nil {
			zlog.Fatal("DLQ queue declaration failed", zap.String("routing_key", key), zap.Error(err))
		}
	}
	dlqCh.Close()
	dlqConn.Close()

	notificationLog := repository.NewNotificationLogRepository(pool, zlog)

	handler := mqhandler.NewReviewEmailHandler(
		mailer.NewFromConfig(cfg.SMTP, zlog),
		circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		util.NewDeduperWithLogger(rdb, cfg.Notify.DedupTTL, zlog),
		util.NewRetryCounter(rdb, 24*time.Hour),
		int64(cfg.Notify.MaxRetries),
		notificationLog,
		dlqPublisher,
		zlog,
	)
	consumer.SetHandler(handler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			zlog.Fatal("Consumer stopped", zap.Error(err))
		}
	}()

	zlog.Info("Worker started",
		zap.String("queue", contracts.ReviewNotifyQueue),
		zap.String("binding", contracts.ReviewNotifyBindingKey),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Worker shutting down")
}
