package main

// @title           countersign API
// @version         1.0
// @description     Multi-party document signing. Owners place fields on a PDF, recipients fill their own fields in rank order, and the composed document is emailed when everyone has signed.

// @contact.name   countersign maintainers
// @contact.url    https://github.com/custodia-labs/countersign/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/countersign/docs"
	"github.com/custodia-labs/countersign/internal/adapters/driven/auth"
	"github.com/custodia-labs/countersign/internal/adapters/driven/email"
	"github.com/custodia-labs/countersign/internal/adapters/driven/fetch"
	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf"
	"github.com/custodia-labs/countersign/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/countersign/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/countersign/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/countersign/internal/adapters/driven/redis"
	"github.com/custodia-labs/countersign/internal/adapters/driving/http"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
	"github.com/custodia-labs/countersign/internal/core/services"
	"github.com/custodia-labs/countersign/internal/worker"
)

var version = "dev"

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := loadConfig()
	if len(os.Args) > 1 {
		cfg.Mode = os.Args[1]
	}

	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("countersign exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	switch cfg.Mode {
	case "api", "worker", "all":
	default:
		return fmt.Errorf("unknown mode: %s (use: api, worker, or all)", cfg.Mode)
	}

	logger.Info("countersign starting", "version", version, "mode", cfg.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ===== PostgreSQL =====
	dbConfig := postgres.DefaultConfig(cfg.DatabaseURL)
	dbConfig.MaxOpenConns = cfg.DBMaxOpenConns
	dbConfig.Logger = logger
	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	logger.Info("postgres connected and schema initialized")

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	// ===== Sessions, queue and lock: Redis when available, otherwise PostgreSQL =====
	var (
		sessionStore driven.SessionStore
		taskQueue    driven.TaskQueue
		lock         driven.DistributedLock
	)
	if redisClient != nil {
		sessionStore = redisadapter.NewSessionStore(redisClient)
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			return fmt.Errorf("create task queue: %w", err)
		}
		lock = redisadapter.NewLock(redisClient)
	} else {
		sessionStore = postgres.NewSessionStore(db)
		taskQueue = postgresqueue.NewQueue(db.DB)
		lock = postgres.NewAdvisoryLock(db)
	}
	defer taskQueue.Close()
	logger.Info("coordination backends selected", "backend", cfg.backend())

	// ===== Driven adapters =====
	userStore := postgres.NewUserStore(db)
	instanceStore := postgres.NewInstanceStore(db)
	authAdapter := auth.NewAdapter(cfg.JWTSecret)
	composer := services.NewComposer(
		fetch.NewSource(fetch.Config{Timeout: cfg.FetchTimeout}),
		pdf.NewRenderer(),
	)

	// ===== Services =====
	authService := services.NewAuthService(services.AuthServiceConfig{
		UserStore:    userStore,
		SessionStore: sessionStore,
		AuthAdapter:  authAdapter,
		SessionTTL:   cfg.SessionTTL,
		Logger:       logger,
	})
	userService := services.NewUserService(userStore, authAdapter)
	instanceService := services.NewInstanceService(services.InstanceServiceConfig{
		Store:             instanceStore,
		TaskQueue:         taskQueue,
		Composer:          composer,
		Logger:            logger,
		ObserversMustSign: cfg.ObserversMustSign,
	})
	signingService := services.NewSubmissionProcessor(services.SubmissionConfig{
		Store:     instanceStore,
		Lock:      lock,
		TaskQueue: taskQueue,
		Logger:    logger,
		LockWait:  cfg.LockWait,
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if cfg.Mode == "worker" || cfg.Mode == "all" {
		notifier, err := newNotifier(cfg, logger)
		if err != nil {
			return err
		}

		w := worker.NewWorker(worker.WorkerConfig{
			TaskQueue: taskQueue,
			Notifications: services.NewNotificationService(services.NotificationConfig{
				Store:     instanceStore,
				UserStore: userStore,
				Composer:  composer,
				Notifier:  notifier,
				ClientURL: cfg.ClientURL,
				Logger:    logger,
			}),
			Janitor: services.NewJanitor(services.JanitorConfig{
				TaskQueue: taskQueue,
				Lock:      lock,
				Logger:    logger,
				Schedule:  cfg.JanitorSchedule,
				Retention: cfg.TaskRetention,
			}),
			Logger:         logger,
			Concurrency:    cfg.WorkerConcurrency,
			DequeueTimeout: cfg.WorkerDequeueTimeout,
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			w.Stop()
		}()
	}

	if cfg.Mode == "api" || cfg.Mode == "all" {
		docs.SwaggerInfo.Version = version
		docs.SwaggerInfo.Host = cfg.publicHost()

		checks := map[string]http.Pinger{
			"database": db,
			"queue":    taskQueue,
		}
		if redisClient != nil {
			checks["redis"] = redisadapter.NewLock(redisClient)
		}

		server := http.NewServer(http.Config{
			Host:           "0.0.0.0",
			Port:           cfg.Port,
			Version:        version,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		}, http.Services{
			Auth:     authService,
			Users:    userService,
			Instance: instanceService,
			Signing:  signingService,
		}, checks)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)
	logger.Info("countersign stopped")
	return <-errCh
}

// newNotifier sends over SMTP when a host is configured and logs otherwise
func newNotifier(cfg config, logger *slog.Logger) (driven.Notifier, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP_HOST not set, notifications will only be logged")
		return email.NewLogNotifier(logger), nil
	}
	notifier, err := email.NewSMTPNotifier(cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("configure smtp: %w", err)
	}
	logger.Info("smtp notifier configured", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	return notifier, nil
}
