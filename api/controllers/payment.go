package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/api/middleware"
	"github.com/csdakkoni/ecommerce-sub000/api/responses"
	"github.com/csdakkoni/ecommerce-sub000/api/validators"
	"github.com/csdakkoni/ecommerce-sub000/internal/cart"
	checkoutsvc "github.com/csdakkoni/ecommerce-sub000/internal/checkout"
	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// PaymentRetrier starts a new payment session for an existing order.
type PaymentRetrier interface {
	Retry(ctx context.Context, orderID uuid.UUID, customer payment.Customer) (*payment.Outcome, error)
}

// PaymentSettler resolves a gateway callback token.
type PaymentSettler interface {
	Handle(ctx context.Context, token string) (*payment.CallbackOutcome, error)
}

type cartItemRequest struct {
	ID             string           `json:"id" validate:"required"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Name           string           `json:"name" validate:"max=200"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	VariantID      string           `json:"variantId,omitempty"`
	OptionValueIDs []string         `json:"optionValueIds,omitempty" validate:"omitempty,max=20"`
	UnitType       string           `json:"unitType,omitempty" validate:"omitempty,oneof=piece meter"`
}

type customerRequest struct {
	Email          string  `json:"email" validate:"required,email,max=254"`
	FirstName      string  `json:"firstName" validate:"required,max=100"`
	LastName       string  `json:"lastName" validate:"required,max=100"`
	Phone          string  `json:"phone" validate:"required,max=30"`
	UserID         *string `json:"userId,omitempty" validate:"omitempty,max=64"`
	IdentityNumber string  `json:"identityNumber,omitempty" validate:"omitempty,max=20"`
}

type paymentInitRequest struct {
	CartItems       []cartItemRequest `json:"cartItems" validate:"max=100,dive"`
	Customer        customerRequest   `json:"customer"`
	ShippingAddress types.Address     `json:"shippingAddress"`
	BillingAddress  *types.Address    `json:"billingAddress,omitempty"`
	Currency        string            `json:"currency,omitempty" validate:"omitempty,oneof=TRY EUR try eur"`
	Locale          string            `json:"locale,omitempty" validate:"max=20"`
	CouponCode      string            `json:"couponCode,omitempty" validate:"max=64"`
}

type paymentInitResponse struct {
	Success             bool   `json:"success"`
	OrderID             string `json:"orderId"`
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
}

// PaymentInit validates, prices and persists a cart, then opens a hosted
// payment session for it.
func PaymentInit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload paymentInitRequest
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Execute(r.Context(), payload.toCheckout(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, newPaymentInitResponse(out))
	}
}

func (p paymentInitRequest) toCheckout(r *http.Request) checkoutsvc.Request {
	lines := make([]cart.Line, 0, len(p.CartItems))
	for _, item := range p.CartItems {
		selections := append([]string(nil), item.OptionValueIDs...)
		if id := strings.TrimSpace(item.VariantID); id != "" {
			selections = append(selections, id)
		}
		lines = append(lines, cart.Line{
			ProductID:      strings.TrimSpace(item.ID),
			Quantity:       item.Quantity,
			Name:           validators.SanitizeString(item.Name, 200),
			ClaimedPrice:   item.Price,
			UnitType:       item.UnitType,
			OptionValueIDs: selections,
		})
	}
	return checkoutsvc.Request{
		Lines: lines,
		Customer: checkoutsvc.Customer{
			Email:          p.Customer.Email,
			FirstName:      validators.SanitizeString(p.Customer.FirstName, 100),
			LastName:       validators.SanitizeString(p.Customer.LastName, 100),
			Phone:          p.Customer.Phone,
			UserID:         p.Customer.UserID,
			IdentityNumber: p.Customer.IdentityNumber,
		},
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		Currency:        strings.ToUpper(strings.TrimSpace(p.Currency)),
		Locale:          p.Locale,
		CouponCode:      p.CouponCode,
		IdempotencyKey:  r.Header.Get(middleware.IdempotencyHeader),
		ClientIP:        middleware.ClientIP(r),
	}
}

func newPaymentInitResponse(out *payment.Outcome) paymentInitResponse {
	if out == nil {
		return paymentInitResponse{}
	}
	return paymentInitResponse{
		Success:             true,
		OrderID:             out.OrderID.String(),
		Token:               out.Token,
		CheckoutFormContent: out.CheckoutFormContent,
		PaymentPageURL:      out.PaymentPageURL,
	}
}

type retryCustomerRequest struct {
	FirstName      string `json:"firstName,omitempty" validate:"max=100"`
	LastName       string `json:"lastName,omitempty" validate:"max=100"`
	IdentityNumber string `json:"identityNumber,omitempty" validate:"omitempty,max=20"`
}

type paymentRetryRequest struct {
	Customer *retryCustomerRequest `json:"customer,omitempty"`
}

// PaymentRetry reopens payment for an order whose session failed, using the
// items and addresses persisted with it.
func PaymentRetry(svc PaymentRetrier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentRetryRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		customer := payment.Customer{IP: middleware.ClientIP(r)}
		if c := payload.Customer; c != nil {
			customer.FirstName = validators.SanitizeString(c.FirstName, 100)
			customer.LastName = validators.SanitizeString(c.LastName, 100)
			customer.IdentityNumber = strings.TrimSpace(c.IdentityNumber)
		}

		out, err := svc.Retry(r.Context(), orderID, customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, newPaymentInitResponse(out))
	}
}

// PaymentCallback settles the order behind a gateway token and sends the
// customer to the storefront result page.
func PaymentCallback(svc PaymentSettler, storefrontURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		token, err := validators.CallbackToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "token is required"))
			return
		}

		out, err := svc.Handle(r.Context(), token)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeValidation {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Error(r.Context(), "payment callback failed", err)
			}
			http.Redirect(w, r, resultURL(storefrontURL, "", "error", ""), http.StatusSeeOther)
			return
		}

		status := "failure"
		if out.Paid {
			status = "success"
		}
		http.Redirect(w, r, resultURL(storefrontURL, out.OrderID.String(), status, out.ErrorCode), http.StatusSeeOther)
	}
}

func resultURL(base, orderID, status, errorCode string) string {
	query := url.Values{}
	query.Set("status", status)
	if orderID != "" {
		query.Set("orderId", orderID)
	}
	if errorCode != "" {
		query.Set("errorCode", errorCode)
	}
	return strings.TrimRight(base, "/") + "/checkout/result?" + query.Encode()
}
