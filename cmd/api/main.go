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
	hhttp "reddit-watch/internal/handler/http"
	hpost "reddit-watch/internal/handler/http/post"
	"reddit-watch/internal/handler/http/requestid"
	"reddit-watch/internal/handler/http/respond"
	"reddit-watch/internal/infra/adapter/persistence/memory"
	"reddit-watch/internal/infra/adapter/persistence/postgres"
	"reddit-watch/internal/infra/db"
	"reddit-watch/internal/infra/reddit"
	"reddit-watch/internal/observability/logging"
	pkgconfig "reddit-watch/internal/pkg/config"
	"reddit-watch/internal/repository"
	"reddit-watch/internal/usecase/listen"
)

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

	repo, closeRepo := openRepository(ctx, logger, appCfg)
	defer closeRepo()

	// The memory store lives and dies with this process, so when it is
	// selected the API embeds the subreddit listener instead of relying on a
	// separate worker writing to a shared database.
	if appCfg.PostsStore == "memory" {
		startEmbeddedListener(ctx, logger, appCfg, repo)
	}

	runServer(ctx, logger, appCfg, repo)
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

// startEmbeddedListener runs the subreddit sync job on a cron schedule inside
// the API process.
func startEmbeddedListener(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig, repo repository.PostRepository) {
	client, err := reddit.NewClient(reddit.Config{
		BaseAddress: cfg.BaseAddress,
		Credentials: reddit.Credentials{
			AuthorizationURL: cfg.AuthorizationURL,
			ClientID:         cfg.ClientID,
			ClientSecret:     cfg.ClientSecret,
			Username:         cfg.Username,
			Password:         cfg.Password,
			AppName:          cfg.AppName,
			AppVersion:       config.AppVersion,
		},
		StartTime: cfg.StartTime,
	}, logger)
	if err != nil {
		logger.Error("failed to create Reddit client", slog.Any("error", err))
		os.Exit(1)
	}

	svc := listen.NewService(redditSource{client: client}, repo, cfg.Subreddit, logger)

	schedule := pkgconfig.LoadEnvWithFallback("CRON_SCHEDULE", "*/5 * * * *", pkgconfig.ValidateCronSchedule)
	for _, warning := range schedule.Warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", warning))
	}

	timeout := pkgconfig.LoadEnvDuration("SYNC_TIMEOUT", 5*time.Minute, pkgconfig.ValidatePositiveDuration)
	for _, warning := range timeout.Warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", warning))
	}
	syncTimeout := timeout.Value.(time.Duration)

	c := cron.New()
	_, err = c.AddFunc(schedule.Value.(string), func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if _, err := svc.SyncPosts(jobCtx); err != nil {
			logger.Error("sync failed", slog.String("error", respond.SanitizeError(err)))
		}
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	logger.Info("embedded listener started",
		slog.String("subreddit", cfg.Subreddit),
		slog.String("schedule", schedule.Value.(string)))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
}

// runServer serves the ranked post views until the context is cancelled, then
// shuts down gracefully.
func runServer(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig, repo repository.PostRepository) {
	port := pkgconfig.LoadEnvInt("API_PORT", 8080, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 65535)
	})
	for _, warning := range port.Warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", warning))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /r/{subreddit}/posts", hpost.ListPosts(repo))
	mux.Handle("GET /r/{subreddit}/posts/users", hpost.ListAuthors(repo))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	handler := hhttp.Chain(mux,
		requestid.Middleware,
		hhttp.Logging(logger),
		hhttp.Recovery(logger),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port.Value.(int)),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("api server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("api server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown failed", slog.Any("error", err))
		} else {
			logger.Info("api server stopped")
		}
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Error("api server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
