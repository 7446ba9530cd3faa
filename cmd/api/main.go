package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rahulpdmehta/hungerwood-core/api/routes"
	"github.com/rahulpdmehta/hungerwood-core/internal/cart"
	"github.com/rahulpdmehta/hungerwood-core/internal/orders"
	"github.com/rahulpdmehta/hungerwood-core/internal/ordersync"
	"github.com/rahulpdmehta/hungerwood-core/internal/payment"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/db"
	"github.com/rahulpdmehta/hungerwood-core/pkg/instance"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/metrics"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
	"github.com/rahulpdmehta/hungerwood-core/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing local store", err)
		}
	}()

	if err := dbClient.AutoMigrate(&cart.Line{}); err != nil {
		logg.Error(context.Background(), "failed to migrate local store", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	backend, err := orderapi.New(cfg.Backend, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	engine, err := ordersync.NewEngine(ordersync.EngineParams{
		Backend:       backend,
		Notifier:      ordersync.NewLogNotifier(logg),
		Logger:        logg,
		Metrics:       syncMetrics,
		Sync:          cfg.Sync,
		StreamBackoff: cfg.Backend.StreamBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync engine", err)
		os.Exit(1)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logg.Error(context.Background(), "error closing sync engine", err)
		}
	}()

	if err := engine.Seed(context.Background()); err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "initial order sync failed, continuing without seed")
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    cart.NewRepository(dbClient.DB()),
		Billing: cfg.Billing,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Backend: backend,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	coordinator, err := payment.NewCoordinator(payment.CoordinatorParams{
		Cart:     cartService,
		Backend:  backend,
		Tracker:  engine,
		Debounce: redisClient,
		Logger:   logg,
		Metrics:  paymentMetrics,
		Billing:  cfg.Billing,
		Wallet:   cfg.Wallet,
		Payment:  cfg.Payment,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment coordinator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Backend:      backend,
			Cart:         cartService,
			Orders:       ordersService,
			Sync:         engine,
			Payments:     coordinator,
			PromGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
