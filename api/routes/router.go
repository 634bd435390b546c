package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arooba/marketplace-backend/api/controllers"
	dashboardcontrollers "github.com/arooba/marketplace-backend/api/controllers/dashboard"
	ordercontrollers "github.com/arooba/marketplace-backend/api/controllers/orders"
	pricingcontrollers "github.com/arooba/marketplace-backend/api/controllers/pricing"
	productcontrollers "github.com/arooba/marketplace-backend/api/controllers/products"
	shippingcontrollers "github.com/arooba/marketplace-backend/api/controllers/shipping"
	vendorcontrollers "github.com/arooba/marketplace-backend/api/controllers/vendors"
	"github.com/arooba/marketplace-backend/api/middleware"
	"github.com/arooba/marketplace-backend/internal/orders"
	product "github.com/arooba/marketplace-backend/internal/products"
	"github.com/arooba/marketplace-backend/pkg/config"
	"github.com/arooba/marketplace-backend/pkg/db"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/redis"
)

// Store is the Redis surface the HTTP layer needs for idempotency, rate limiting and readiness.
type Store interface {
	redis.IdempotencyStore
	redis.Pinger
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RouterParams carries the services mounted on the router. Nil services answer INTERNAL_ERROR.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     Store
	Gatherer  prometheus.Gatherer
	Pricing   pricingcontrollers.Quoter
	Shipping  shippingcontrollers.Quoter
	Products  product.Service
	Orders    orders.Service
	Status    orders.StatusService
	Wallets   vendorcontrollers.WalletService
	Dashboard dashboardcontrollers.Reader
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		idempotencyStore middleware.IdempotencyStore
		pinger           redis.Pinger
	)
	if p.Redis != nil {
		idempotencyStore, pinger = p.Redis, p.Redis
	}
	orderPolicy := middleware.NewRateLimitPolicy("orders", cfg.RateLimit.OrderWindow, cfg.RateLimit.OrderIPLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, pinger))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/pricing/quote", pricingcontrollers.Quote(p.Pricing, logg))
		r.Post("/pricing/deviation", pricingcontrollers.Deviation(cfg.Pricing.DeviationThreshold, logg))
		r.Post("/shipping/quote", shippingcontrollers.Quote(p.Shipping, logg))

		r.Get("/products/{productId}", productcontrollers.Get(p.Products, logg))
		r.Post("/products/{productId}/reprice", productcontrollers.Reprice(p.Products, logg))

		r.Route("/orders", func(r chi.Router) {
			if p.Redis != nil {
				r.With(middleware.RateLimit(orderPolicy, p.Redis, logg)).Post("/", ordercontrollers.Create(p.Orders, logg))
			} else {
				r.Post("/", ordercontrollers.Create(p.Orders, logg))
			}
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Post("/{orderId}/status", ordercontrollers.UpdateStatus(p.Status, logg))
		})
		r.Post("/shipments/{shipmentId}/status", ordercontrollers.UpdateShipmentStatus(p.Status, logg))

		r.Route("/vendors/{vendorId}", func(r chi.Router) {
			r.Get("/wallet", vendorcontrollers.Wallet(p.Wallets, logg))
			r.Get("/ledger", vendorcontrollers.Ledger(p.Wallets, logg))
			r.Get("/escrow", vendorcontrollers.Escrow(p.Wallets, logg))
			r.Post("/payouts", vendorcontrollers.Payout(p.Wallets, logg))
			r.Get("/dashboard", dashboardcontrollers.Vendor(p.Dashboard, logg))
		})
		r.Get("/dashboard/platform", dashboardcontrollers.Platform(p.Dashboard, logg))
	})

	return r
}
