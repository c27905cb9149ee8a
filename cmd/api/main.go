package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/config"
	"github.com/pulsemon/pulsemon/internal/httpapi"
	"github.com/pulsemon/pulsemon/internal/logging"
	"github.com/pulsemon/pulsemon/internal/notify"
	"github.com/pulsemon/pulsemon/internal/probe"
	"github.com/pulsemon/pulsemon/internal/repo"
	"github.com/pulsemon/pulsemon/internal/repo/memory"
	"github.com/pulsemon/pulsemon/internal/repo/postgres"
	"github.com/pulsemon/pulsemon/internal/repo/sqlite"
	"github.com/pulsemon/pulsemon/internal/retention"
	"github.com/pulsemon/pulsemon/internal/scheduler"
	"github.com/pulsemon/pulsemon/internal/tracker"
)

func main() {
	configPath := flag.String("config", os.Getenv("PULSEMON_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("engine_failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	dispatcher := notify.NewDispatcher(store, logger, notify.DispatcherConfig{
		RetryAttempts: cfg.Notify.RetryAttempts,
		RetryBackoff:  cfg.Notify.RetryBackoff,
		SendTimeout:   cfg.Notify.SendTimeout,
	}, notify.NewSNS(), notify.NewWebhook(cfg.Notify.SendTimeout))

	// Settings survive restarts; the dispatcher starts from the stored copy.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	settings, err := store.LoadSettings(ctx)
	cancel()
	if err != nil {
		logger.Warn("settings_load_failed", zap.Error(err))
	} else {
		dispatcher.UpdateSettings(settings)
	}

	executor := probe.NewExecutor(cfg.Check.Timeout, store, cfg.Check.GraceFactor, logger)
	track := tracker.New(store, logger)
	supervisor := scheduler.NewSupervisor(logger, store, executor, track, dispatcher)

	if err := supervisor.StartAll(context.Background()); err != nil {
		return err
	}

	cleaner := retention.NewCleaner(store, cfg.Retention.Window, logger)
	if err := cleaner.Start(cfg.Retention.Schedule); err != nil {
		return fmt.Errorf("start retention: %w", err)
	}

	api := httpapi.NewServer(logger, store, supervisor, dispatcher)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	}

	// Ordered teardown: no new API work, no new checks, then flush
	// notifications and close storage last.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, srv.Shutdown(shutdownCtx))
	supervisor.Shutdown()
	cleaner.Stop()
	dispatcher.Wait()
	closeErr = multierr.Append(closeErr, store.Close())
	_ = logger.Sync()
	return closeErr
}

func openStore(cfg *config.Config, logger *zap.Logger) (repo.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return sqlite.New(cfg.Store.DSN)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, cfg.Store.DSN, logger)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}
