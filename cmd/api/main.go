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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/splitledger/internal/config"
	"github.com/josh-kwaku/splitledger/internal/events"
	"github.com/josh-kwaku/splitledger/internal/logging"
	"github.com/josh-kwaku/splitledger/internal/service"
	"github.com/josh-kwaku/splitledger/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(logging.Options{Service: "splitledger-api", Level: cfg.LogLevel, Env: cfg.AppEnv}); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, store.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer stores.Close()
	slog.Info("store opened", "backend", cfg.StoreBackend)

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer publisher.Close()

	expenses := service.NewExpenseService(stores.Expenses, stores.Users, publisher)
	balances := service.NewBalanceService(stores.Expenses, stores.Users)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes(cfg, stores, expenses, balances),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanIdempotencyCache(gctx, stores.Idempotency, cfg.IdempotencyCleanInterval)
		return nil
	})

	return g.Wait()
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		slog.Info("event publishing disabled - no AMQP_URL provided")
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("newPublisher: %w", err)
	}
	slog.Info("publishing expense events", "exchange", cfg.AMQPExchange)
	return p, nil
}

type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

func cleanIdempotencyCache(ctx context.Context, c expiredCleaner, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanExpired(ctx)
			if err != nil {
				slog.Warn("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idempotency cache cleaned", "removed", n)
			}
		}
	}
}
