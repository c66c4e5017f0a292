package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/internal/cart"
	"github.com/csdakkoni/ecommerce-sub000/internal/catalog"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/correlation"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

type catalogReader interface {
	Snapshot(ctx context.Context, productIDs []uuid.UUID, couponCode string) (*catalog.Snapshot, error)
}

type orderWriter interface {
	CreateOrder(ctx context.Context, header orders.Header, lines []cart.ValidatedLine) (*models.Order, error)
}

type paymentInitiator interface {
	Initiate(ctx context.Context, order *models.Order, customer payment.Customer) (*payment.Outcome, error)
}

// OutcomeObserver counts checkout results by error code ("" on success).
type OutcomeObserver interface {
	ObserveCheckout(code string)
}

// Service runs one checkout: validate, price, persist, start payment.
type Service interface {
	Execute(ctx context.Context, req Request) (*payment.Outcome, error)
}

// Customer is the buyer as submitted with the checkout.
type Customer struct {
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	UserID         *string
	IdentityNumber string
}

func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Request is a client checkout submission. Everything in Lines except ids,
// quantities and selections is advisory.
type Request struct {
	Lines           []cart.Line
	Customer        Customer
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Currency        string
	Locale          string
	CouponCode      string
	IdempotencyKey  string
	ClientIP        string
}

type Params struct {
	Catalog   catalogReader
	Validator *cart.Validator
	Resolver  *pricing.CurrencyResolver
	Writer    orderWriter
	Payments  paymentInitiator
	IDs       correlation.Generator
	// Guard is optional; without it duplicate submissions create distinct orders.
	Guard    *Guard
	Logger   *logger.Logger
	Observer OutcomeObserver
}

type service struct {
	catalog   catalogReader
	validator *cart.Validator
	resolver  *pricing.CurrencyResolver
	shipping  *pricing.ShippingCalculator
	writer    orderWriter
	payments  paymentInitiator
	ids       correlation.Generator
	guard     *Guard
	logg      *logger.Logger
	observer  OutcomeObserver
}

func NewService(params Params) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment initiator required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("currency resolver required")
	}
	if params.Validator == nil {
		params.Validator = cart.NewValidator()
	}
	if params.IDs == nil {
		params.IDs = correlation.NewGenerator()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		catalog:   params.Catalog,
		validator: params.Validator,
		resolver:  params.Resolver,
		shipping:  pricing.NewShippingCalculator(params.Resolver),
		writer:    params.Writer,
		payments:  params.Payments,
		ids:       params.IDs,
		guard:     params.Guard,
		logg:      params.Logger,
		observer:  params.Observer,
	}, nil
}

func (s *service) Execute(ctx context.Context, req Request) (out *payment.Outcome, err error) {
	defer func() { s.observe(err) }()

	if err := checkRequest(req); err != nil {
		return nil, err
	}

	currency, _, err := s.resolver.Resolve(req.Locale, req.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported currency").
			WithDetails(map[string]string{"currency": err.Error()})
	}

	snapshot, err := s.catalog.Snapshot(ctx, productIDs(req.Lines), req.CouponCode)
	if err != nil {
		s.logg.Error(ctx, "catalog snapshot failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "catalog is temporarily unavailable")
	}

	lines, err := s.validator.Validate(req.Lines, snapshot, currency)
	if err != nil {
		return nil, err
	}
	discount, coupon, err := s.validator.Discount(snapshot, req.CouponCode, currency)
	if err != nil {
		return nil, err
	}

	lineTotals := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		lineTotals[i] = line.LineTotal
	}
	totals := s.shipping.Totals(lineTotals, discount, currency)

	conversationID := s.ids.NewID()
	ctx = s.logg.WithConversationID(ctx, conversationID)

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.guard != nil {
		if err := s.guard.Reserve(ctx, key); err != nil {
			return nil, err
		}
	}

	header := s.buildHeader(req, currency, totals, coupon, conversationID, key)
	order, err := s.writer.CreateOrder(ctx, header, lines)
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if key != "" && s.guard != nil {
		if bindErr := s.guard.Bind(ctx, key, order.ID); bindErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", bindErr.Error()), "idempotency key not bound to order")
		}
	}

	out, err = s.payments.Initiate(ctx, order, payment.Customer{
		FirstName:      strings.TrimSpace(req.Customer.FirstName),
		LastName:       strings.TrimSpace(req.Customer.LastName),
		Email:          header.CustomerEmail,
		Phone:          header.CustomerPhone,
		UserID:         derefString(req.Customer.UserID),
		IdentityNumber: strings.TrimSpace(req.Customer.IdentityNumber),
		IP:             req.ClientIP,
	})
	if err != nil {
		return nil, ensureOrderID(err, order.ID)
	}
	s.logg.Info(ctx, "checkout completed")
	return out, nil
}

func (s *service) buildHeader(req Request, currency enums.Currency, totals pricing.Totals, coupon *string, conversationID, key string) orders.Header {
	name := req.Customer.FullName()

	shipping := req.ShippingAddress.Normalized()
	if shipping.ContactName == "" {
		shipping.ContactName = name
	}
	billing := shipping
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		billing = req.BillingAddress.Normalized()
		if billing.ContactName == "" {
			billing.ContactName = name
		}
	}

	header := orders.Header{
		Currency:        currency,
		Locale:          localeOrDefault(req.Locale, currency),
		Totals:          totals,
		CouponCode:      coupon,
		ConversationID:  conversationID,
		CustomerEmail:   strings.ToLower(strings.TrimSpace(req.Customer.Email)),
		CustomerName:    name,
		CustomerPhone:   strings.TrimSpace(req.Customer.Phone),
		UserID:          req.Customer.UserID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
	}
	if key != "" {
		header.IdempotencyKey = &key
	}
	return header
}

func (s *service) release(ctx context.Context, key string) {
	if key == "" || s.guard == nil {
		return
	}
	if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "idempotency key release failed")
	}
}

func (s *service) observe(err error) {
	if s.observer == nil {
		return
	}
	if err == nil {
		s.observer.ObserveCheckout("")
		return
	}
	if typed := pkgerrors.As(err); typed != nil {
		s.observer.ObserveCheckout(string(typed.Code()))
		return
	}
	s.observer.ObserveCheckout(string(pkgerrors.CodeInternal))
}

// checkRequest rejects malformed submissions before any I/O.
func checkRequest(req Request) error {
	if len(req.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	missing := map[string]string{}
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing[field] = "is required"
		}
	}
	require("customer.email", req.Customer.Email)
	require("customer.firstName", req.Customer.FirstName)
	require("customer.lastName", req.Customer.LastName)
	require("customer.phone", req.Customer.Phone)
	require("shippingAddress.address", req.ShippingAddress.Address)
	require("shippingAddress.city", req.ShippingAddress.City)
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		require("billingAddress.address", req.BillingAddress.Address)
		require("billingAddress.city", req.BillingAddress.City)
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer or address fields are missing").WithDetails(missing)
	}
	return nil
}

// productIDs collects the parseable ids; the validator rejects the rest.
func productIDs(lines []cart.Line) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if id, err := uuid.Parse(strings.TrimSpace(line.ProductID)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func ensureOrderID(err error, orderID uuid.UUID) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentUnavailable, err, "payment could not be started").WithOrderID(orderID.String())
	}
	if typed.OrderID() == "" {
		typed.WithOrderID(orderID.String())
	}
	return err
}

func localeOrDefault(locale string, currency enums.Currency) string {
	if locale = strings.TrimSpace(locale); locale != "" {
		return locale
	}
	if currency == enums.CurrencyTRY {
		return "tr"
	}
	return "en"
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
