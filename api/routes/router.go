package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/csdakkoni/ecommerce-sub000/api/controllers"
	"github.com/csdakkoni/ecommerce-sub000/api/middleware"
	checkoutsvc "github.com/csdakkoni/ecommerce-sub000/internal/checkout"
	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	pkgredis "github.com/csdakkoni/ecommerce-sub000/pkg/redis"
)

// KeyStore is the Redis surface the HTTP layer uses for replay protection,
// throttling and readiness.
type KeyStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Store     KeyStore
	Checkout  checkoutsvc.Service
	Payments  controllers.PaymentRetrier
	Callbacks controllers.PaymentSettler
	Preview   controllers.PricePreviewer
	Metrics   http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	// Load has already validated the ranges.
	proxies, _ := cfg.App.TrustedProxyPrefixes()
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIPResolver(proxies),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	deps := map[string]controllers.Pinger{"database": p.DB}
	var store pkgredis.IdempotencyStore
	checkoutLimit := func(next http.Handler) http.Handler { return next }
	if p.Store != nil {
		deps["redis"] = p.Store
		store = p.Store
		policy := middleware.NewRateLimitPolicy(
			"checkout",
			cfg.Checkout.RateLimitWindow,
			cfg.Checkout.RateLimitPerIP,
			cfg.Checkout.RateLimitPerEmail,
		)
		checkoutLimit = middleware.RateLimit(policy, p.Store, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, deps))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Route("/payment", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Idempotency(store, cfg.Checkout.IdempotencyTTL, logg))
			r.With(checkoutLimit).Post("/init", controllers.PaymentInit(p.Checkout, logg))
			r.Post("/orders/{orderId}/retry", controllers.PaymentRetry(p.Payments, logg))
		})
		callback := controllers.PaymentCallback(p.Callbacks, cfg.App.StorefrontURL, logg)
		r.Get("/callback", callback)
		r.Post("/callback", callback)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pricing/preview", controllers.PricingPreview(p.Preview, logg))
	})

	return r
}
