package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arooba/marketplace-backend/api/routes"
	"github.com/arooba/marketplace-backend/internal/dashboard"
	"github.com/arooba/marketplace-backend/internal/ledger"
	"github.com/arooba/marketplace-backend/internal/orders"
	"github.com/arooba/marketplace-backend/internal/pricing"
	product "github.com/arooba/marketplace-backend/internal/products"
	"github.com/arooba/marketplace-backend/internal/shipping"
	"github.com/arooba/marketplace-backend/internal/wallet"
	"github.com/arooba/marketplace-backend/pkg/config"
	"github.com/arooba/marketplace-backend/pkg/db"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
	"github.com/arooba/marketplace-backend/pkg/migrate"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	marketplaceMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	rates := pricing.NewCachedRateTable(pricing.NewCategoryRepository(conn), cfg.Cache.RateTableTTL, cfg.Cache.CleanupEvery)
	pricingService, err := pricing.NewService(pricing.NewCalculator(pricing.PolicyFromConfig(cfg.Pricing)), rates)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	cards := shipping.NewCachedRateCards(shipping.NewRateCardRepository(conn), cfg.Cache.RateTableTTL, cfg.Cache.CleanupEvery)
	shippingService, err := shipping.NewService(shipping.NewCalculator(shipping.PolicyFromConfig(cfg.Shipping)), cards)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	productRepo := product.NewRepository(conn)
	productService, err := product.NewService(productRepo, pricingService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	catalog := product.NewInventory(productRepo)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	walletService, err := wallet.NewService(wallet.ServiceParams{
		DB:         dbClient,
		Ledger:     ledgerService,
		Outbox:     emitter,
		Metrics:    marketplaceMetrics,
		Logger:     logg,
		HoldPeriod: cfg.Escrow.HoldPeriod(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		DB:       dbClient,
		Catalog:  catalog,
		Shipping: shippingService,
		Wallets:  walletService,
		Outbox:   emitter,
		Metrics:  marketplaceMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	statusService, err := orders.NewStatusService(orders.StatusServiceParams{
		Repo:    ordersRepo,
		DB:      dbClient,
		Catalog: catalog,
		Wallets: walletService,
		Outbox:  emitter,
		Metrics: marketplaceMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order status service", err)
		os.Exit(1)
	}

	projector, err := dashboard.NewProjector(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard projector", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Gatherer:  prometheus.DefaultGatherer,
			Pricing:   pricingService,
			Shipping:  shippingService,
			Products:  productService,
			Orders:    ordersService,
			Status:    statusService,
			Wallets:   walletService,
			Dashboard: projector,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shutting down gracefully")
}
