package payment

import (
	"context"
	"fmt"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/iyzico"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	pkgstripe "github.com/csdakkoni/ecommerce-sub000/pkg/stripe"
)

// NewGatewayFromConfig builds the gateway selected by configuration.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Gateway, error) {
	switch provider := cfg.Gateway.NormalizedProvider(); provider {
	case config.GatewayIyzico:
		client, err := iyzico.NewClient(ctx, cfg.Iyzico, logg)
		if err != nil {
			return nil, fmt.Errorf("iyzico client: %w", err)
		}
		return NewIyzicoGateway(client, cfg.Iyzico)
	case config.GatewayStripe:
		client, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, fmt.Errorf("stripe client: %w", err)
		}
		return NewStripeGateway(client)
	default:
		return nil, fmt.Errorf("unsupported payment gateway %q", provider)
	}
}
