package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bluewud/storefront-backend/api/routes"
	"github.com/bluewud/storefront-backend/internal/cart"
	"github.com/bluewud/storefront-backend/internal/catalog"
	"github.com/bluewud/storefront-backend/internal/checkout"
	"github.com/bluewud/storefront-backend/internal/coupons"
	"github.com/bluewud/storefront-backend/internal/currency"
	"github.com/bluewud/storefront-backend/internal/orders"
	"github.com/bluewud/storefront-backend/internal/pricing"
	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/db"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/metrics"
	"github.com/bluewud/storefront-backend/pkg/migrate"
	"github.com/bluewud/storefront-backend/pkg/outbox"
	"github.com/bluewud/storefront-backend/pkg/redis"
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
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	converter, err := currency.NewConverter(cfg.Currency)
	if err != nil {
		logg.Error(context.Background(), "failed to build currency converter", err)
		os.Exit(1)
	}
	pricingEngine, err := pricing.NewEngine(cfg.Pricing, converter)
	if err != nil {
		logg.Error(context.Background(), "failed to build pricing engine", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	stockService, err := catalog.NewStockService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, catalogRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	couponService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, stockService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cartService,
		cartRepo,
		catalogRepo,
		stockService,
		pricingEngine,
		couponService,
		ordersRepo,
		outboxService,
		dbClient,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			registry,
			cartService,
			pricingEngine,
			checkoutService,
			ordersService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
