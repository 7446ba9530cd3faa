package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulpdmehta/hungerwood-core/api/controllers"
	"github.com/rahulpdmehta/hungerwood-core/api/middleware"
	cartsvc "github.com/rahulpdmehta/hungerwood-core/internal/cart"
	"github.com/rahulpdmehta/hungerwood-core/internal/orders"
	"github.com/rahulpdmehta/hungerwood-core/internal/ordersync"
	"github.com/rahulpdmehta/hungerwood-core/internal/payment"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
	"github.com/rahulpdmehta/hungerwood-core/pkg/redis"
)

// Deps groups everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        *redis.Client
	Backend      *orderapi.Client
	Cart         cartsvc.Service
	Orders       orders.Service
	Sync         *ordersync.Engine
	Payments     *payment.Coordinator
	PromGatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisPinger, backendPinger controllers.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	if deps.Backend != nil {
		backendPinger = deps.Backend
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger, backendPinger))
	})

	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	placementPolicy := middleware.NewPlacementRateLimitPolicy("placement", time.Minute, 10, 30)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Post("/items/{itemId}/increment", controllers.CartIncrement(deps.Cart, logg))
			r.Post("/items/{itemId}/decrement", controllers.CartDecrement(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", controllers.CheckoutQuote(deps.Cart, logg))
			r.Group(func(r chi.Router) {
				var limiter middleware.RateLimiterStore
				if deps.Redis != nil {
					limiter = deps.Redis
				}
				r.Use(middleware.PlacementRateLimit(placementPolicy, limiter, logg))
				r.Post("/orders", controllers.PlaceOrder(deps.Payments, logg))
				r.Post("/gateway", controllers.GatewayCheckoutBegin(deps.Payments, logg))
				r.Post("/gateway/confirm", controllers.GatewayCheckoutConfirm(deps.Payments, logg))
			})
			r.Delete("/gateway", controllers.GatewayCheckoutDismiss(deps.Payments, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/tracked", controllers.TrackedOrders(deps.Sync))
			r.Post("/refresh", controllers.OrdersRefresh(deps.Sync))
			r.Get("/tracked/{orderId}", controllers.TrackedOrderDetail(deps.Sync, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletFetch(deps.Backend, logg))
			r.Get("/summary", controllers.WalletSummary(deps.Backend, logg))
			r.Get("/applicability", controllers.WalletApplicability(deps.Backend, cfg.Billing, cfg.Wallet, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(deps.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderStatusUpdate(deps.Orders, logg))
		})
	})

	return r
}
