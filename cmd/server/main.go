package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/cache"
	"github.com/example/ride-hailing/internal/config"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/events"
	httpapi "github.com/example/ride-hailing/internal/http"
	"github.com/example/ride-hailing/internal/identity"
	"github.com/example/ride-hailing/internal/lifecycle"
	"github.com/example/ride-hailing/internal/logging"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/storage"
	"github.com/example/ride-hailing/internal/views"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("bad configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	var store storage.RideStore
	var directory identity.Directory
	if cfg.PGDSN != "" {
		db, err := sql.Open("postgres", cfg.PGDSN)
		if err != nil {
			logger.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			logger.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		if cfg.RunMigrations {
			if err := applyMigrations(db, "migrations", logger); err != nil {
				logger.Error("migrations failed", "error", err)
				os.Exit(1)
			}
		}
		store = storage.NewPostgresStoreFromDB(db)
		directory = identity.NewPostgresDirectory(db)
	} else {
		logger.Warn("PG_DSN not set, using in-memory store and directory")
		store = storage.NewMemoryStore()
		directory = identity.NewMemoryDirectory()
	}

	wsreg := dispatch.NewWSRegistry()
	notify := dispatch.Multi{wsreg}
	if cfg.NotifyWebhookURL != "" {
		notify = append(notify, dispatch.NewWebhookNotifier(cfg.NotifyWebhookURL))
	}

	var sink lifecycle.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		sink = producer
	}

	engine := &lifecycle.Engine{Store: store, Notify: notify, Events: sink, Logger: logger}
	viewBuilder := views.NewBuilder(store)
	settle := &payments.Settlement{
		Engine:    engine,
		Processor: payments.NewStripeProcessor(),
		Currency:  cfg.Currency,
		Logger:    logger,
	}

	var statusCache *cache.StatusCache
	if cfg.RedisAddr != "" {
		statusCache = cache.NewStatusCache(cfg.RedisAddr, cfg.RedisPassword)
		defer statusCache.Close()
	}

	api := httpapi.NewServer(httpapi.Deps{
		Directory: directory,
		Engine:    engine,
		Views:     viewBuilder,
		Settle:    settle,
		Cache:     statusCache,
		WSReg:     wsreg,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("ride-hailing API listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}

func applyMigrations(db *sql.DB, dir string, logger *slog.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(b)); err != nil {
			return err
		}
		logger.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
