package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stepshop/storefront-backend/api/controllers"
	"github.com/stepshop/storefront-backend/api/middleware"
	alertssvc "github.com/stepshop/storefront-backend/internal/alerts"
	cartsvc "github.com/stepshop/storefront-backend/internal/cart"
	catalogsvc "github.com/stepshop/storefront-backend/internal/catalog"
	checkoutsvc "github.com/stepshop/storefront-backend/internal/checkout"
	inventorysvc "github.com/stepshop/storefront-backend/internal/inventory"
	orderssvc "github.com/stepshop/storefront-backend/internal/orders"
	paymentssvc "github.com/stepshop/storefront-backend/internal/payments"
	"github.com/stepshop/storefront-backend/internal/users"
	"github.com/stepshop/storefront-backend/pkg/config"
	"github.com/stepshop/storefront-backend/pkg/db"
	"github.com/stepshop/storefront-backend/pkg/logger"
	"github.com/stepshop/storefront-backend/pkg/redis"
)

// Services bundles the wired service layer handed to the router.
type Services struct {
	Catalog   catalogsvc.Service
	Cart      cartsvc.Service
	Checkout  checkoutsvc.Service
	Orders    orderssvc.Service
	Payments  paymentssvc.Service
	Inventory inventorysvc.Service
	Alerts    alertssvc.Service
	Users     *users.Repository
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Storefront browsing needs no account.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/{productId}", controllers.GetProduct(svcs.Catalog, logg))
	})
	r.Get("/api/v1/categories", controllers.ListCategories(svcs.Catalog, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Post("/items/{productId}", controllers.CartAddItem(svcs.Cart, logg))
			r.Put("/items/{productId}", controllers.CartSetItem(svcs.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartDecrementItem(svcs.Cart, logg))
			r.Delete("/items/{productId}/all", controllers.CartRemoveItem(svcs.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Get("/{orderId}/payment", controllers.OrderPaymentSummary(svcs.Orders, logg))
			r.Post("/{orderId}/payment", controllers.SubmitPayment(svcs.Payments, logg))
		})

		r.Post("/products/{productId}/alerts", controllers.SubscribeAlert(svcs.Alerts, logg))

		r.Route("/manager", func(r chi.Router) {
			r.Use(middleware.RequireManager(logg))

			r.Get("/dashboard", controllers.ManagerDashboard(svcs.Orders, svcs.Users, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ManagerOrdersList(svcs.Orders, logg))
				r.Patch("/{orderId}", controllers.ManagerUpdateOrder(svcs.Orders, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.ManagerCreateProduct(svcs.Catalog, logg))
				r.Patch("/{productId}", controllers.ManagerUpdateProduct(svcs.Catalog, logg))
				r.Delete("/{productId}", controllers.ManagerDeleteProduct(svcs.Catalog, logg))
				r.Put("/{productId}/inventory", controllers.ManagerSetInventory(svcs.Inventory, logg))
			})

			r.Post("/categories", controllers.ManagerCreateCategory(svcs.Catalog, logg))
		})
	})

	return r
}
