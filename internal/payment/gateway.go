package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// Gateway creates hosted checkout sessions and reports their outcome.
// Errors of type *BusinessError are rejections of the request itself; any
// other error is treated as a transport failure.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	RetrieveResult(ctx context.Context, token string) (Result, error)
}

// SessionRequest is the gateway-neutral checkout payload built from a
// persisted order.
type SessionRequest struct {
	ConversationID  string
	OrderID         string
	Locale          string
	Currency        enums.Currency
	Price           decimal.Decimal
	PaidPrice       decimal.Decimal
	Items           []BasketItem
	Buyer           Buyer
	ShippingAddress types.Address
	BillingAddress  types.Address
	CallbackURL     string
}

type BasketItem struct {
	ID        string
	Name      string
	Category1 string
	Category2 string
	Physical  bool
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
}

type Buyer struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	IdentityNumber string
	IP             string
}

type Session struct {
	Token               string
	PageURL             string
	CheckoutFormContent string
}

// Result is the outcome of a hosted session as reported by the gateway.
type Result struct {
	Token          string
	ConversationID string
	PaymentID      string
	Paid           bool
	ErrorCode      string
	ErrorMessage   string
}

// BusinessError carries the gateway's own rejection code and message.
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s %s", e.Code, e.Message)
}

// AsBusinessError returns the rejection carried by err, if any.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
