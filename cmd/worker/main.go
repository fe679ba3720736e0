package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tagattend/internal/audit"
	"tagattend/internal/config"
	"tagattend/internal/logger"
	"tagattend/internal/queue"
	"tagattend/internal/store"
)

// Worker drains unknown-tag events from the Redis queue into the audit log.
func main() {
	cfg := config.Load()

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName+"-worker")
	if err != nil {
		stdlog.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs QUEUE_BACKEND=redis; the memory queue is drained inside the api process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, log)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("worker started, waiting for messages",
		zap.String("queue", cfg.QueueKey),
		zap.String("audit_log", cfg.AuditLogPath))
	written := audit.Drain(messages, audit.NewFileSink(cfg.AuditLogPath), log)
	log.Info("worker stopped", zap.Int("written", written))
}
