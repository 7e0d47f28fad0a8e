package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	deliveryhttp "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/idempotency"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/gochannel"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/metrics"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/seed"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	paymentsGroupID = "storefront-payments"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Storefront stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Store ---
	store, health, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := seed.Products(ctx, store.Products(), cfg.SeedFile); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	// --- Broker ---
	broker := openBroker(cfg, logger)
	if broker != nil {
		defer broker.Close()
	}

	// --- Idempotency ---
	keys, closeKeys, err := openKeys(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKeys()

	// --- Services ---
	m := metrics.NewServerMetrics("api")
	orders := service.NewOrderService(store)
	svc := deliveryhttp.Services{
		Auth: service.NewAuthService(store, service.AuthConfig{
			Secret:              []byte(cfg.JWTSecret),
			AccessTokenTTL:      cfg.AccessTokenTTL,
			ResetTokenTTL:       cfg.ResetTokenTTL,
			BcryptCost:          cfg.BcryptCost,
			AllowedEmailDomains: cfg.AllowedEmailDomains,
		}),
		Products: service.NewProductService(store),
		Carts:    service.NewCartService(store),
		Checkout: service.NewCheckoutService(store, keys, m),
		Orders:   orders,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deliveryhttp.NewHandler(svc, m, health).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start everything ---
	var wg sync.WaitGroup
	if broker != nil {
		relay := service.NewOutboxRelay(store.Outbox(), broker, m, cfg.OutboxInterval, cfg.OutboxBatch)
		wg.Add(2)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
		// Consumer: payments.events → order status transitions
		go func() {
			defer wg.Done()
			broker.Consume(ctx, entity.TopicPaymentEvents, paymentsGroupID, orders.HandlePaymentEvent)
		}()
		slog.Info("🔄 Outbox relay and payment consumer started", "broker", cfg.BrokerDriver)
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		cancel()
	}
	slog.Info("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("HTTP shutdown failed", "err", shutdownErr)
	}
	wg.Wait()
	return err
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(*http.Request) error, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		slog.Warn("Using in-memory store; data is lost on exit")
		return memory.NewStore(), nil, func() {}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init database: %w", err)
	}
	health := func(r *http.Request) error { return db.PingContext(r.Context()) }
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "err", err)
		}
	}
	return postgres.NewStore(db, cfg.LockTimeout), health, closeDB, nil
}

// openBroker returns nil when events are not published.
func openBroker(cfg *config.Config, logger *slog.Logger) messaging.Broker {
	switch cfg.BrokerDriver {
	case config.BrokerKafka:
		return kafka.NewKafkaBroker(cfg.KafkaBrokers)
	case config.BrokerMemory:
		return gochannel.NewBroker(logger)
	default:
		slog.Warn("No broker configured; outbox records stay pending")
		return nil
	}
}

func openKeys(ctx context.Context, cfg *config.Config) (idempotency.Store, func(), error) {
	if cfg.RedisURL == "" {
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL), func() {}, nil
	}
	keys, err := idempotency.NewRedisStore(ctx, cfg.RedisURL, cfg.IdempotencyTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	closeKeys := func() {
		if err := keys.Close(); err != nil {
			slog.Error("Failed to close redis", "err", err)
		}
	}
	return keys, closeKeys, nil
}
