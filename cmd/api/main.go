package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stepshop/storefront-backend/api/routes"
	"github.com/stepshop/storefront-backend/internal/alerts"
	"github.com/stepshop/storefront-backend/internal/cart"
	"github.com/stepshop/storefront-backend/internal/catalog"
	"github.com/stepshop/storefront-backend/internal/checkout"
	"github.com/stepshop/storefront-backend/internal/inventory"
	"github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/internal/payments"
	"github.com/stepshop/storefront-backend/internal/users"
	"github.com/stepshop/storefront-backend/pkg/config"
	"github.com/stepshop/storefront-backend/pkg/db"
	"github.com/stepshop/storefront-backend/pkg/logger"
	"github.com/stepshop/storefront-backend/pkg/mail"
	"github.com/stepshop/storefront-backend/pkg/metrics"
	"github.com/stepshop/storefront-backend/pkg/migrate"
	"github.com/stepshop/storefront-backend/pkg/redis"
	"github.com/stepshop/storefront-backend/pkg/square"
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
	storeMetrics := metrics.NewStorefrontMetrics(registry)

	gateway, err := buildGateway(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to configure payment gateway", err)
		os.Exit(1)
	}

	var sender mail.Sender
	if cfg.Sendgrid.APIKey != "" {
		sendgridSender, err := mail.NewSendgridSender(cfg.Sendgrid, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to configure mail sender", err)
			os.Exit(1)
		}
		sender = sendgridSender
	} else {
		logg.Warn(context.Background(), "sendgrid not configured, back-in-stock emails disabled")
	}

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	inventoryRepo := inventory.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	alertsRepo := alerts.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)

	catalogService, err := catalog.NewService(catalogRepo)
	exitOnWiring(logg, "catalog service", err)

	cartService, err := cart.NewService(cartRepo, catalogRepo, inventoryRepo)
	exitOnWiring(logg, "cart service", err)

	alertsService, err := alerts.NewService(alertsRepo, catalogRepo, sender, logg)
	exitOnWiring(logg, "alerts service", err)

	inventoryService, err := inventory.NewService(inventoryRepo, alertsService.NotifyBackInStock)
	exitOnWiring(logg, "inventory service", err)

	ordersService, err := orders.NewService(ordersRepo)
	exitOnWiring(logg, "orders service", err)

	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, catalogRepo, nil, storeMetrics)
	exitOnWiring(logg, "checkout service", err)

	paymentsService, err := payments.NewService(ordersRepo, gateway, cfg.Square.Currency, storeMetrics)
	exitOnWiring(logg, "payments service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"gateway": gateway.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Catalog:   catalogService,
			Cart:      cartService,
			Checkout:  checkoutService,
			Orders:    ordersService,
			Payments:  paymentsService,
			Inventory: inventoryService,
			Alerts:    alertsService,
			Users:     usersRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildGateway(cfg *config.Config, logg *logger.Logger) (payments.Gateway, error) {
	switch cfg.Payments.NormalizedProvider() {
	case config.PaymentProviderSquare:
		client, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		return payments.NewSquareGateway(client)
	default:
		return payments.NewFakeGateway(), nil
	}
}

func exitOnWiring(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to wire "+component, err)
	os.Exit(1)
}
