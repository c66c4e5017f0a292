package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errInvalidStripeEnv = fmt.Errorf("stripe: environment must be %q or %q", testEnv, liveEnv)

// keyPrefixes lists the secret and restricted key prefixes each environment
// accepts.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

// Client talks to the Checkout Sessions API with its own key. The stripe
// package-level key is never set.
type Client struct {
	sessions    session.Client
	environment string
	logg        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key required")
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}
	if logg == nil {
		logg = logger.Nop()
	}
	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client ready")

	return &Client{
		sessions:    session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: apiKey},
		environment: env,
		logg:        logg,
	}, nil
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("stripe: checkout session params required")
	}
	params.Context = ctx
	sess, err := c.sessions.New(params)
	if err != nil {
		c.logg.Error(ctx, "stripe checkout session create failed", err)
		return nil, err
	}
	return sess, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := c.sessions.Get(id, params)
	if err != nil {
		c.logg.Error(c.logg.WithField(ctx, "session_id", id), "stripe checkout session lookup failed", err)
		return nil, err
	}
	return sess, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		return testEnv, nil
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

// validateAPIKey stops a live key from being used in test mode and the
// other way round.
func validateAPIKey(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return errInvalidStripeEnv
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe: %s environment requires a key starting with %s", env, strings.Join(prefixes, " or "))
}
