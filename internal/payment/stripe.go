package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
)

// StripeAPI is the subset of the Stripe client the gateway relies on.
type StripeAPI interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

type StripeGateway struct {
	api StripeAPI
}

func NewStripeGateway(api StripeAPI) (*StripeGateway, error) {
	if api == nil {
		return nil, errors.New("stripe api required")
	}
	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) Name() string { return config.GatewayStripe }

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	sess, err := g.api.CreateCheckoutSession(ctx, toCheckoutSessionParams(req))
	if err != nil {
		return Session{}, mapStripeError(err)
	}
	return Session{Token: sess.ID, PageURL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveResult(ctx context.Context, token string) (Result, error) {
	sess, err := g.api.GetCheckoutSession(ctx, token)
	if err != nil {
		return Result{}, mapStripeError(err)
	}
	res := Result{
		Token:          sess.ID,
		ConversationID: sess.ClientReferenceID,
		Paid:           sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if sess.PaymentIntent != nil {
		res.PaymentID = sess.PaymentIntent.ID
	}
	if !res.Paid {
		res.ErrorCode = string(sess.PaymentStatus)
	}
	return res, nil
}

func toCheckoutSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(req.Currency.String())
	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))

	// A discounted order is charged as one line so the session amount
	// matches the order total.
	if !req.Price.Equal(req.PaidPrice) {
		lines = append(lines, stripeLine(currency, "Order "+req.ConversationID, req.PaidPrice, 1))
	} else {
		for _, it := range req.Items {
			qty := it.Quantity
			if qty.IsInteger() && qty.IsPositive() && it.UnitPrice.Mul(qty).Equal(it.Price) {
				lines = append(lines, stripeLine(currency, it.Name, it.UnitPrice, qty.IntPart()))
				continue
			}
			lines = append(lines, stripeLine(currency, it.Name, it.Price, 1))
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.ConversationID),
		SuccessURL:        stripe.String(callbackWithToken(req.CallbackURL)),
		CancelURL:         stripe.String(callbackWithToken(req.CallbackURL)),
		LineItems:         lines,
		Metadata: map[string]string{
			"order_id":        req.OrderID,
			"conversation_id": req.ConversationID,
		},
	}
	if req.Buyer.Email != "" {
		params.CustomerEmail = stripe.String(req.Buyer.Email)
	}
	return params
}

func stripeLine(currency, name string, unit decimal.Decimal, qty int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(minorUnits(unit)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(qty),
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// callbackWithToken makes Stripe append the session id the callback
// handler looks up.
func callbackWithToken(callbackURL string) string {
	sep := "?"
	if strings.Contains(callbackURL, "?") {
		sep = "&"
	}
	return callbackURL + sep + "token={CHECKOUT_SESSION_ID}"
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeCard:
			return &BusinessError{Code: string(stripeErr.Code), Message: stripeErr.Msg}
		}
	}
	return err
}
