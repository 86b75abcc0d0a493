package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/salonfield/backoffice/internal/gateway"
	"github.com/salonfield/backoffice/internal/handlers"
	"github.com/salonfield/backoffice/internal/platform/config"
	"github.com/salonfield/backoffice/internal/platform/observability"
	"github.com/salonfield/backoffice/internal/repositories"
	"github.com/salonfield/backoffice/internal/repositories/memory"
	"github.com/salonfield/backoffice/internal/repositories/postgres"
	"github.com/salonfield/backoffice/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("backoffice")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	orderStore, counterStore, pool, err := buildStores(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise order store", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
	}

	provider, err := buildGateway(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise payment gateway", zap.Error(err))
	}

	// One registry for both services keeps cancels and status changes out
	// of in-flight settlement critical sections.
	orderLocks := services.NewOrderLocks()

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   orderStore,
		Counters: counterStore,
		Logger:   logger.Named("orders"),
		Locks:    orderLocks,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	settlement, err := services.NewSettlement(services.SettlementDeps{
		Orders:         orderStore,
		Gateway:        provider,
		GatewayTimeout: cfg.Gateway.Timeout,
		Logger:         logger.Named("settlement"),
		Locks:          orderLocks,
	})
	if err != nil {
		logger.Fatal("failed to initialise settlement service", zap.Error(err))
	}

	orderHandlers := handlers.NewOrderHandlers(orderService, settlement, settlement, handlers.PricingDefaults{
		TaxRate:       cfg.Pricing.TaxRate,
		TipPercentage: cfg.Pricing.TipPercentage,
	})

	healthOpts := []handlers.HealthOption{}
	if pool != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessProbe("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		}))
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithOrderRoutes(orderHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("backoffice api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildStores selects the storage backend. With no database URL configured
// everything stays in memory, which suits local development and tests.
func buildStores(ctx context.Context, logger *zap.Logger, cfg config.Config) (repositories.OrderRepository, repositories.CounterRepository, *pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		logger.Info("using in-memory order store")
		return memory.NewOrderStore(), memory.NewCounterStore(), nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	logger.Info("using postgres order store")
	return postgres.NewOrderStore(pool), postgres.NewCounterStore(pool), pool, nil
}

func buildGateway(logger *zap.Logger, cfg config.Config) (gateway.Provider, error) {
	switch cfg.Gateway.Provider {
	case "stripe":
		logger.Info("using stripe payment gateway")
		return gateway.NewStripeGateway(gateway.StripeConfig{APIKey: cfg.Gateway.StripeAPIKey})
	default:
		logger.Info("using simulated payment gateway",
			zap.Float64("approvalRate", cfg.Gateway.ApprovalRate),
			zap.Float64("refundApprovalRate", cfg.Gateway.RefundApprovalRate),
			zap.Duration("latency", cfg.Gateway.SimulatorLatency),
		)
		return gateway.NewSimulator(gateway.SimulatorConfig{
			AuthorizeApprovalRate: cfg.Gateway.ApprovalRate,
			RefundApprovalRate:    cfg.Gateway.RefundApprovalRate,
			Latency:               cfg.Gateway.SimulatorLatency,
		}), nil
	}
}
