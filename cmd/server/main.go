package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/account"
	"github.com/prompt-gallery/internal/api"
	"github.com/prompt-gallery/internal/blob"
	"github.com/prompt-gallery/internal/cache"
	"github.com/prompt-gallery/internal/config"
	"github.com/prompt-gallery/internal/logger"
	"github.com/prompt-gallery/internal/middleware"
	"github.com/prompt-gallery/internal/moderation"
	"github.com/prompt-gallery/internal/notify"
	"github.com/prompt-gallery/internal/scheduler"
	"github.com/prompt-gallery/internal/session"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/storage/memory"
	"github.com/prompt-gallery/internal/view"

	_ "github.com/prompt-gallery/docs" // swagger docs
)

// @title Prompt Gallery API
// @version 1.0
// @description Prompt sharing gallery with moderated submissions, favorites and ad placements.

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your session token with the Bearer prefix, e.g. "Bearer eyJhbGci..."

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.Log)
	ctx := context.Background()

	store, err := openStore(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()

	if cfg.Database.Seed {
		err = storage.Seed(ctx, store)
	} else {
		err = storage.EnsureAdPlacements(ctx, store)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to seed storage")
	}

	sessions := session.NewManager(cfg.Session)
	accounts := account.NewService(store.Users, sessions, log)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			log.WithError(err).Warn("failed to create admin user")
		}
	}

	viewCache, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to cache")
	}
	defer viewCache.Close()

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize blob store")
	}

	dispatcher := notify.FromConfig(cfg.Notify, log)
	views := view.NewComposer(store, viewCache, log)
	mod := moderation.NewService(store, moderation.Options{
		Blobs:         blobs,
		Notifier:      dispatcher,
		Views:         views,
		MaxImageBytes: cfg.Upload.MaxImageBytes,
		OrphanGrace:   cfg.Upload.OrphanGrace,
		Log:           log,
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(mod, cfg.Scheduler.DigestSchedule, cfg.Scheduler.SweepSchedule, log)
		if err := sched.Start(ctx); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
	}

	handler := api.NewHandler(api.Services{
		Store:         store,
		Accounts:      accounts,
		Moderation:    mod,
		Views:         views,
		Sessions:      sessions,
		Cache:         viewCache,
		Scheduler:     sched,
		MaxImageBytes: cfg.Upload.MaxImageBytes,
		Log:           log,
	})
	router := api.NewRouter(handler, middleware.NewAuthMiddleware(sessions), blobs, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	waitWithTimeout(dispatcher.Wait, cfg.Notify.Timeout)
	log.Info("server stopped")
}

func openStore(cfg config.DatabaseConfig, log *logrus.Logger) (*storage.Store, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	log.WithField("driver", cfg.Driver).Info("connecting to database")
	db, err := storage.NewDatabase(&cfg)
	if err != nil {
		return nil, err
	}

	log.Info("running migrations")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return storage.NewSQLStore(db), nil
}

// waitWithTimeout gives in-flight notifications a bounded time to finish.
func waitWithTimeout(wait func(), timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
