package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/audit"
	"launchpad/internal/auth"
	"launchpad/internal/cache"
	"launchpad/internal/config"
	"launchpad/internal/db"
	"launchpad/internal/documents"
	httpserver "launchpad/internal/http"
	"launchpad/internal/logging"
	"launchpad/internal/metrics"
	"launchpad/internal/notify"
	"launchpad/internal/onboarding"
	"launchpad/internal/repository"
	"launchpad/internal/roster"
	"launchpad/internal/seed"
	"launchpad/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("launchpad api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}

	if _, err := seed.EnsureAdmin(ctx, repo.Operators(), cfg.SeedAdminEmail, cfg.SeedAdminPassword, log); err != nil {
		return err
	}

	objects, filesDir, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	var projections cache.Cache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			return err
		}
		defer rc.Close()
		projections = rc
	}

	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	if len(cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kn.Close()
		notifier = kn
	}

	m := metrics.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(httpserver.Deps{
		Onboarding: onboarding.NewService(onboarding.Deps{
			Repo:        repo,
			Cache:       projections,
			Notifier:    notifier,
			Objects:     objects,
			Metrics:     m,
			Logger:      log,
			AllowDelete: cfg.AllowOrgDelete,
		}),
		Documents: documents.NewService(documents.Deps{Repo: repo, Objects: objects, Cache: projections, Metrics: m, Logger: log}),
		Roster:    roster.NewService(roster.Deps{Repo: repo, Cache: projections, Logger: log}),
		Auth:      auth.NewService(repo.Operators(), tokens),
		Tokens:    tokens,
		Operators: repo.Operators(),
		Audit:     audit.NewRecorder(repo.Audit(), log),
		Metrics:   m,
		Logger:    log,
		FilesDir:  filesDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "db", cfg.DBDriver, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Manager, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory repository; data is lost on restart")
		return repository.NewMemoryManager(), nil
	}
	gdb, err := db.Connect(ctx, cfg.DBDriver, cfg.DSN, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.NewGormManager(gdb), nil
}

// openStorage returns the object store and, for disk storage, the directory
// to serve under /files.
func openStorage(ctx context.Context, cfg config.Config) (storage.ObjectStore, string, error) {
	sc := cfg.Storage
	baseURL := sc.BaseURL
	switch sc.Backend {
	case "s3":
		st, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  sc.S3Endpoint,
			Region:    sc.S3Region,
			Bucket:    sc.S3Bucket,
			AccessKey: sc.S3AccessKey,
			SecretKey: sc.S3SecretKey,
			PublicURL: baseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return st, "", nil
	case "memory":
		if baseURL == "" {
			baseURL = "memory://launchpad"
		}
		return storage.NewMemoryStore(baseURL), "", nil
	default:
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%s/files", cfg.AppPort)
		}
		st, err := storage.NewDiskStore(sc.Dir, baseURL)
		if err != nil {
			return nil, "", err
		}
		return st, sc.Dir, nil
	}
}
