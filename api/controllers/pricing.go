package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/api/responses"
	"github.com/csdakkoni/ecommerce-sub000/api/validators"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

type PricePreviewer interface {
	Preview(ctx context.Context, input pricing.PreviewInput) (pricing.PreviewResult, error)
}

type pricePreviewRequest struct {
	ProductID      string   `json:"productId" validate:"required,uuid"`
	OptionValueIDs []string `json:"optionValueIds" validate:"max=20"`
	Currency       string   `json:"currency,omitempty" validate:"omitempty,oneof=TRY EUR try eur"`
	Locale         string   `json:"locale,omitempty" validate:"max=20"`
}

// PricingPreview quotes one product with the selected options.
func PricingPreview(svc PricePreviewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var payload pricePreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "productId must be a valid id"))
			return
		}

		result, err := svc.Preview(r.Context(), pricing.PreviewInput{
			ProductID:      productID,
			OptionValueIDs: payload.OptionValueIDs,
			Currency:       payload.Currency,
			Locale:         payload.Locale,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
