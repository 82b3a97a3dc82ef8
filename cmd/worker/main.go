package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"reddit-watch/internal/config"
	"reddit-watch/internal/handler/http/respond"
	"reddit-watch/internal/infra/adapter/persistence/memory"
	"reddit-watch/internal/infra/adapter/persistence/postgres"
	"reddit-watch/internal/infra/db"
	"reddit-watch/internal/infra/reddit"
	workerPkg "reddit-watch/internal/infra/worker"
	"reddit-watch/internal/observability/logging"
	"reddit-watch/internal/repository"
	"reddit-watch/internal/usecase/listen"
)

// redditSource adapts the concrete Reddit client to the listen use case's
// source interface.
type redditSource struct {
	client *reddit.Client
}

func (s redditSource) Posts(ctx context.Context, subreddit string) (listen.PostIterator, error) {
	it, err := s.client.Posts(ctx, subreddit)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		logger.Error("failed to load application configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerCfg := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerCfg.CronSchedule),
		slog.String("timezone", workerCfg.Timezone),
		slog.Duration("sync_timeout", workerCfg.SyncTimeout),
		slog.Int("metrics_port", workerCfg.MetricsPort))

	repo, closeRepo := openRepository(ctx, logger, appCfg)
	defer closeRepo()

	client, err := reddit.NewClient(reddit.Config{
		BaseAddress: appCfg.BaseAddress,
		Credentials: reddit.Credentials{
			AuthorizationURL: appCfg.AuthorizationURL,
			ClientID:         appCfg.ClientID,
			ClientSecret:     appCfg.ClientSecret,
			Username:         appCfg.Username,
			Password:         appCfg.Password,
			AppName:          appCfg.AppName,
			AppVersion:       config.AppVersion,
		},
		StartTime: appCfg.StartTime,
	}, logger)
	if err != nil {
		logger.Error("failed to create Reddit client", slog.Any("error", err))
		os.Exit(1)
	}

	svc := listen.NewService(redditSource{client: client}, repo, appCfg.Subreddit, logger)

	healthAddr := fmt.Sprintf(":%d", workerCfg.MetricsPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, promhttp.Handler(), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runScheduler(ctx, logger, svc, workerCfg, workerMetrics, healthServer)
}

// openRepository selects the post store backend from configuration. The
// returned close function releases the store's resources on shutdown.
func openRepository(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) (repository.PostRepository, func()) {
	switch cfg.PostsStore {
	case "postgres":
		database, err := db.Open()
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		if err := db.EnsureSchema(ctx, database); err != nil {
			logger.Error("failed to ensure database schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("post store initialized", slog.String("backend", "postgres"))
		return postgres.NewPostRepo(database), func() { closeDatabase(logger, database) }
	default:
		logger.Info("post store initialized", slog.String("backend", "memory"))
		return memory.NewPostRepo(logger), func() {}
	}
}

func closeDatabase(logger *slog.Logger, database *sql.DB) {
	if err := database.Close(); err != nil {
		logger.Error("failed to close database", slog.Any("error", err))
	}
}

// runScheduler starts the cron scheduler and blocks until the context is
// cancelled, then stops accepting new runs and waits for the running one.
func runScheduler(ctx context.Context, logger *slog.Logger, svc *listen.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runSyncJob(logger, svc, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()

	healthServer.SetReady(false)
	logger.Info("worker shutting down")
	<-c.Stop().Done()
	logger.Info("worker stopped")
}

// runSyncJob executes one synchronization run with timeout and metrics.
func runSyncJob(logger *slog.Logger, svc *listen.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	start := time.Now()
	metrics.RecordSyncRun("started")
	logger.Info("sync started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout)
	defer cancel()

	stats, err := svc.SyncPosts(ctx)
	metrics.RecordSyncDuration(time.Since(start).Seconds())
	if err != nil {
		// Mask tokens and DSN passwords before the error hits the log.
		logger.Error("sync failed", slog.String("error", respond.SanitizeError(err)))
		metrics.RecordSyncRun("failure")
		return
	}

	metrics.RecordSyncRun("success")
	metrics.RecordPostsSynced(stats.Posts)
	metrics.RecordLastSuccess()

	logger.Info("sync completed",
		slog.Int64("posts", stats.Posts),
		slog.Duration("duration", stats.Duration))
}
