package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/accounts"
	"tagattend/internal/attendance"
	"tagattend/internal/audit"
	"tagattend/internal/config"
	"tagattend/internal/httpmiddleware"
	"tagattend/internal/logger"
	"tagattend/internal/queue"
	"tagattend/internal/registration"
	"tagattend/internal/scanner"
	"tagattend/internal/server"
	"tagattend/internal/store"
	"tagattend/internal/store/memstore"
	"tagattend/internal/students"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		stdlog.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

type backends struct {
	attendance attendance.Store
	students   students.Repository
	accounts   accounts.Repository
	health     []server.HealthCheck
	closers    []func() error
}

func (b *backends) close() {
	for _, c := range b.closers {
		_ = c()
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	var redisClient *store.Redis
	if usesRedis(cfg) {
		redisClient = store.NewRedis(cfg.RedisAddr)
		b.closers = append(b.closers, redisClient.Close)
		b.health = append(b.health, server.HealthCheck{Name: "redis", Check: redisClient.Healthy})
	}

	sink, err := auditSink(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}

	var pending registration.Store
	if cfg.RegistrationBackend == "memory" {
		pending = registration.NewMemory(cfg.RegistrationTTL)
	} else {
		pending = registration.NewRedis(redisClient.Client, cfg.RegistrationTTL)
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	accts := accounts.NewService(b.accounts, 0)
	if cfg.AdminUsername != "" {
		created, err := accts.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Info("bootstrap admin created", zap.String(logger.FieldUsername, cfg.AdminUsername))
		}
	}

	dev := scanner.New(cfg.ScannerURL, cfg.ScannerSkip)
	if !cfg.ScannerSkip {
		if err := dev.Health(ctx); err != nil {
			log.Warn("scanner not reachable", zap.String("url", cfg.ScannerURL), zap.Error(err))
		}
	}

	r := server.New(server.Deps{
		Attendance: attendance.NewService(b.attendance, attendance.ZoneClock{Location: loc}, sink, log),
		Students:   students.NewService(b.students, pending),
		Accounts:   accts,
		Pending:    pending,
		Scanner:    dev,
		Limiter:    limiter,
		Health:     b.health,
		Log:        log,
	}, server.Options{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		ScannerTTL:    cfg.ScannerTTL,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookie:  cfg.Production(),
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}

func openBackends(ctx context.Context, cfg config.App, log *zap.Logger) (*backends, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		m := memstore.New()
		return &backends{attendance: m.Attendance(), students: m.Students(), accounts: m.Accounts()}, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &backends{
		attendance: attendance.NewRepository(db.Client),
		students:   students.NewPostgresRepository(db.Client),
		accounts:   accounts.NewPostgresRepository(db.Client),
		health:     []server.HealthCheck{{Name: "db", Check: db.Healthy}},
		closers:    []func() error{db.Close},
	}, nil
}

func usesRedis(cfg config.App) bool {
	return cfg.RegistrationBackend != "memory" ||
		cfg.RateLimitBackend == "redis" ||
		(cfg.AuditBackend == "queue" && cfg.QueueBackend != "memory")
}

// auditSink picks where unknown-tag lines go. With a memory queue the drain
// runs in this process; with Redis the worker binary drains it.
func auditSink(ctx context.Context, cfg config.App, redisClient *store.Redis, log *zap.Logger) (attendance.AuditSink, error) {
	if cfg.AuditBackend != "queue" {
		return audit.NewFileSink(cfg.AuditLogPath), nil
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		msgs, err := mem.Consume(ctx)
		if err != nil {
			return nil, err
		}
		go audit.Drain(msgs, audit.NewFileSink(cfg.AuditLogPath), log)
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, log)
	}
	return audit.NewQueueSink(q), nil
}
