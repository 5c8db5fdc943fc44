package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bluewud/storefront-backend/api/controllers"
	cartcontrollers "github.com/bluewud/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/bluewud/storefront-backend/api/controllers/orders"
	"github.com/bluewud/storefront-backend/api/middleware"
	cartsvc "github.com/bluewud/storefront-backend/internal/cart"
	checkoutsvc "github.com/bluewud/storefront-backend/internal/checkout"
	orderssvc "github.com/bluewud/storefront-backend/internal/orders"
	"github.com/bluewud/storefront-backend/internal/pricing"
	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/logger"
	pkgredis "github.com/bluewud/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	registry *prometheus.Registry,
	cartService cartsvc.Service,
	pricingEngine *pricing.Engine,
	checkoutService checkoutsvc.Service,
	ordersService orderssvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, pricingEngine, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Put("/items", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/items", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Put("/currency", cartcontrollers.CartSetCurrency(cartService, logg))
			r.Post("/merge", cartcontrollers.CartMerge(cartService, ordersService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.OrderFetch(ordersService, logg))
			r.Post("/{orderId}/status", ordercontrollers.OrderStatusUpdate(ordersService, logg))
		})
	})

	return r
}
