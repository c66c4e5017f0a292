package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csdakkoni/ecommerce-sub000/api/routes"
	"github.com/csdakkoni/ecommerce-sub000/internal/catalog"
	"github.com/csdakkoni/ecommerce-sub000/internal/checkout"
	"github.com/csdakkoni/ecommerce-sub000/internal/events"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/correlation"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/metrics"
	"github.com/csdakkoni/ecommerce-sub000/pkg/migrate"
	"github.com/csdakkoni/ecommerce-sub000/pkg/pubsub"
	"github.com/csdakkoni/ecommerce-sub000/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	ids := correlation.NewGenerator()
	publisher, closePublisher, err := newPublisher(context.Background(), cfg, logg, ids)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap event publisher", err)
		os.Exit(1)
	}
	defer closePublisher()

	gateway, err := payment.NewGatewayFromConfig(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	writer, err := orders.NewWriter(ordersRepo, logg, orders.TransitionObserverFunc(func(from, to orders.WriteState) {
		checkoutMetrics.ObserveTransition(string(from), string(to))
	}))
	if err != nil {
		logg.Error(context.Background(), "failed to create order writer", err)
		os.Exit(1)
	}

	initiator, err := payment.NewInitiator(payment.InitiatorParams{
		Gateway:     gateway,
		Orders:      ordersRepo,
		CallbackURL: cfg.Gateway.CallbackURL,
		Timeout:     cfg.Gateway.Timeout,
		Logger:      logg,
		Observer:    checkoutMetrics,
		Publisher:   publisher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment initiator", err)
		os.Exit(1)
	}

	callbacks, err := payment.NewCallbackHandler(payment.CallbackParams{
		Gateway:   gateway,
		Orders:    ordersRepo,
		Publisher: publisher,
		Timeout:   cfg.Gateway.Timeout,
		Logger:    logg,
		Observer:  checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment callback handler", err)
		os.Exit(1)
	}

	guard, err := checkout.NewGuard(redisClient, cfg.Checkout.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	resolver := pricing.NewCurrencyResolver(pricing.SchedulesFromConfig(cfg.Shipping))
	checkoutService, err := checkout.NewService(checkout.Params{
		Catalog:  catalogRepo,
		Resolver: resolver,
		Writer:   writer,
		Payments: initiator,
		IDs:      ids,
		Guard:    guard,
		Logger:   logg,
		Observer: checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	preview, err := pricing.NewPreviewService(catalogRepo, resolver)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing preview", err)
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
		"provider": cfg.Gateway.NormalizedProvider(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Store:     redisClient,
			Checkout:  checkoutService,
			Payments:  initiator,
			Callbacks: callbacks,
			Preview:   preview,
			Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

// newPublisher returns the Pub/Sub order event publisher, or a no-op one
// when event publishing is disabled.
func newPublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger, ids correlation.Generator) (events.Publisher, func(), error) {
	if !cfg.FeatureFlags.PublishEvents {
		return events.NopPublisher{}, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := events.NewPubSubPublisher(client.OrderEventsPublisher(), ids)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}, nil
}
