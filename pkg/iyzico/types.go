package iyzico

import (
	"strconv"
	"strings"

	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
)

// Item types accepted by the checkout form.
const (
	ItemTypePhysical = "PHYSICAL"
	ItemTypeVirtual  = "VIRTUAL"

	PaymentGroupProduct = "PRODUCT"

	PaymentStatusSuccess = "SUCCESS"
)

type CheckoutFormRequest struct {
	Locale              string       `json:"locale"`
	ConversationID      string       `json:"conversationId"`
	Price               string       `json:"price"`
	PaidPrice           string       `json:"paidPrice"`
	Currency            string       `json:"currency"`
	BasketID            string       `json:"basketId"`
	PaymentGroup        string       `json:"paymentGroup"`
	CallbackURL         string       `json:"callbackUrl"`
	EnabledInstallments []int        `json:"enabledInstallments,omitempty"`
	Buyer               Buyer        `json:"buyer"`
	ShippingAddress     Address      `json:"shippingAddress"`
	BillingAddress      Address      `json:"billingAddress"`
	BasketItems         []BasketItem `json:"basketItems"`
}

type Buyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	GSMNumber           string `json:"gsmNumber,omitempty"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
	ZipCode             string `json:"zipCode,omitempty"`
}

type Address struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode,omitempty"`
}

type BasketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	Category2 string `json:"category2,omitempty"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type CheckoutFormDetailRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId,omitempty"`
	Token          string `json:"token"`
}

type result struct {
	Status         string `json:"status"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
	ErrorGroup     string `json:"errorGroup"`
	Locale         string `json:"locale"`
	SystemTime     int64  `json:"systemTime"`
	ConversationID string `json:"conversationId"`
}

func (r result) err() error {
	if strings.EqualFold(r.Status, statusSuccess) {
		return nil
	}
	if strings.EqualFold(r.Status, statusFailure) || r.ErrorCode != "" {
		return &APIError{ErrorCode: r.ErrorCode, ErrorMessage: r.ErrorMessage, ErrorGroup: r.ErrorGroup}
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "unexpected iyzico status "+strconv.Quote(r.Status))
}

type CheckoutFormResponse struct {
	result
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	TokenExpireTime     int64  `json:"tokenExpireTime"`
	PaymentPageURL      string `json:"paymentPageUrl"`
}

type CheckoutFormDetail struct {
	result
	Token         string `json:"token"`
	PaymentID     string `json:"paymentId"`
	PaymentStatus string `json:"paymentStatus"`
	BasketID      string `json:"basketId"`
	Price         string `json:"price"`
	PaidPrice     string `json:"paidPrice"`
	Currency      string `json:"currency"`
}

// Paid reports whether the form completed with a successful payment.
func (d *CheckoutFormDetail) Paid() bool {
	return d != nil && strings.EqualFold(d.PaymentStatus, PaymentStatusSuccess)
}
