package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
)

// ProductLoader reads a single product with its option tables.
type ProductLoader interface {
	Product(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ErrProductNotFound is returned by loaders for unknown product ids.
var ErrProductNotFound = errors.New("product not found")

// PreviewInput is a live-preview request for a single product.
type PreviewInput struct {
	ProductID      uuid.UUID
	OptionValueIDs []string
	Currency       string
	Locale         string
}

// PreviewResult is the quote plus the currency it was computed in.
type PreviewResult struct {
	Quote
	Currency enums.Currency `json:"currency"`
}

// PreviewService runs the same resolution and engine as checkout validation.
type PreviewService struct {
	products ProductLoader
	resolver *CurrencyResolver
}

func NewPreviewService(products ProductLoader, resolver *CurrencyResolver) (*PreviewService, error) {
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("currency resolver required")
	}
	return &PreviewService{products: products, resolver: resolver}, nil
}

func (s *PreviewService) Preview(ctx context.Context, input PreviewInput) (PreviewResult, error) {
	currency, _, err := s.resolver.Resolve(input.Locale, input.Currency)
	if err != nil {
		return PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported currency")
	}

	product, err := s.products.Product(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return PreviewResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "load product")
	}
	if !product.IsActive {
		return PreviewResult{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	resolved, err := ResolveSelections(product, input.OptionValueIDs, currency)
	if err != nil {
		return PreviewResult{}, pkgerrors.Wrap(pkgerrors.CodeCartRejected, err, err.Error())
	}

	return PreviewResult{
		Quote:    ComputePrice(product.EffectivePrice(currency), resolved.Modifiers),
		Currency: currency,
	}, nil
}
