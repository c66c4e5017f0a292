package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/iyzico"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

const (
	// identityPlaceholder is the value iyzico documents for buyers without
	// a national identity number.
	identityPlaceholder = "11111111111"
	fallbackBuyerIP     = "127.0.0.1"

	CodeIdentityRequired = "IDENTITY_NUMBER_REQUIRED"
)

// IyzicoAPI is the subset of the iyzico client the gateway relies on.
type IyzicoAPI interface {
	InitializeCheckoutForm(ctx context.Context, req iyzico.CheckoutFormRequest) (*iyzico.CheckoutFormResponse, error)
	RetrieveCheckoutForm(ctx context.Context, req iyzico.CheckoutFormDetailRequest) (*iyzico.CheckoutFormDetail, error)
}

type IyzicoGateway struct {
	api                 IyzicoAPI
	allowIdentityFiller bool
}

func NewIyzicoGateway(api IyzicoAPI, cfg config.IyzicoConfig) (*IyzicoGateway, error) {
	if api == nil {
		return nil, errors.New("iyzico api required")
	}
	return &IyzicoGateway{api: api, allowIdentityFiller: cfg.AllowIdentityPlaceholder}, nil
}

func (g *IyzicoGateway) Name() string { return config.GatewayIyzico }

func (g *IyzicoGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	identity := req.Buyer.IdentityNumber
	if identity == "" {
		if !g.allowIdentityFiller {
			return Session{}, &BusinessError{Code: CodeIdentityRequired, Message: "identity number is required for this payment method"}
		}
		identity = identityPlaceholder
	}

	resp, err := g.api.InitializeCheckoutForm(ctx, toCheckoutForm(req, identity))
	if err != nil {
		return Session{}, mapIyzicoError(err)
	}
	return Session{
		Token:               resp.Token,
		PageURL:             resp.PaymentPageURL,
		CheckoutFormContent: resp.CheckoutFormContent,
	}, nil
}

func (g *IyzicoGateway) RetrieveResult(ctx context.Context, token string) (Result, error) {
	detail, err := g.api.RetrieveCheckoutForm(ctx, iyzico.CheckoutFormDetailRequest{
		Locale: "tr",
		Token:  token,
	})
	if err != nil {
		var apiErr *iyzico.APIError
		if errors.As(err, &apiErr) {
			return Result{Token: token, ErrorCode: apiErr.ErrorCode, ErrorMessage: apiErr.ErrorMessage}, nil
		}
		return Result{}, err
	}
	return Result{
		Token:          token,
		ConversationID: detail.ConversationID,
		PaymentID:      detail.PaymentID,
		Paid:           detail.Paid(),
		ErrorCode:      detail.ErrorCode,
		ErrorMessage:   detail.ErrorMessage,
	}, nil
}

func toCheckoutForm(req SessionRequest, identity string) iyzico.CheckoutFormRequest {
	buyerName := strings.TrimSpace(req.Buyer.FirstName + " " + req.Buyer.LastName)
	ip := req.Buyer.IP
	if ip == "" {
		ip = fallbackBuyerIP
	}

	items := make([]iyzico.BasketItem, 0, len(req.Items))
	for _, it := range req.Items {
		itemType := iyzico.ItemTypeVirtual
		if it.Physical {
			itemType = iyzico.ItemTypePhysical
		}
		items = append(items, iyzico.BasketItem{
			ID:        it.ID,
			Name:      it.Name,
			Category1: it.Category1,
			Category2: it.Category2,
			ItemType:  itemType,
			Price:     it.Price.StringFixed(2),
		})
	}

	return iyzico.CheckoutFormRequest{
		Locale:         iyzicoLocale(req.Locale),
		ConversationID: req.ConversationID,
		Price:          req.Price.StringFixed(2),
		PaidPrice:      req.PaidPrice.StringFixed(2),
		Currency:       req.Currency.String(),
		BasketID:       req.OrderID,
		PaymentGroup:   iyzico.PaymentGroupProduct,
		CallbackURL:    req.CallbackURL,
		Buyer: iyzico.Buyer{
			ID:                  req.Buyer.ID,
			Name:                req.Buyer.FirstName,
			Surname:             req.Buyer.LastName,
			GSMNumber:           req.Buyer.Phone,
			Email:               req.Buyer.Email,
			IdentityNumber:      identity,
			RegistrationAddress: req.BillingAddress.Address,
			IP:                  ip,
			City:                req.BillingAddress.City,
			Country:             req.BillingAddress.Country,
			ZipCode:             req.BillingAddress.ZipCode,
		},
		ShippingAddress: toIyzicoAddress(req.ShippingAddress, buyerName),
		BillingAddress:  toIyzicoAddress(req.BillingAddress, buyerName),
		BasketItems:     items,
	}
}

func toIyzicoAddress(a types.Address, fallbackContact string) iyzico.Address {
	contact := a.ContactName
	if contact == "" {
		contact = fallbackContact
	}
	line := a.Address
	if a.District != "" {
		line = line + ", " + a.District
	}
	return iyzico.Address{
		ContactName: contact,
		City:        a.City,
		Country:     a.Country,
		Address:     line,
		ZipCode:     a.ZipCode,
	}
}

func iyzicoLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if l == "tr" || strings.HasPrefix(l, "tr-") || strings.HasPrefix(l, "tr_") {
		return "tr"
	}
	return "en"
}

func mapIyzicoError(err error) error {
	var apiErr *iyzico.APIError
	if errors.As(err, &apiErr) {
		return &BusinessError{Code: apiErr.ErrorCode, Message: apiErr.ErrorMessage}
	}
	return err
}
