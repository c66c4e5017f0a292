package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/internal/events"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

const defaultGatewayTimeout = 15 * time.Second

// Gateway call outcomes reported to the observer.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// GatewayObserver receives one observation per gateway call.
type GatewayObserver interface {
	ObserveGatewayCall(provider, operation, outcome string, elapsed time.Duration)
}

type InitiatorParams struct {
	Gateway     Gateway
	Orders      orders.Repository
	CallbackURL string
	Timeout     time.Duration
	Logger      *logger.Logger
	Observer    GatewayObserver
	Publisher   events.Publisher
}

// Initiator requests a hosted payment session for a persisted order and
// records the returned token on it.
type Initiator struct {
	gateway     Gateway
	orders      orders.Repository
	callbackURL string
	timeout     time.Duration
	logg        *logger.Logger
	observer    GatewayObserver
	publisher   events.Publisher
}

// Outcome is what the client needs to render the hosted checkout.
type Outcome struct {
	OrderID             uuid.UUID
	Token               string
	PaymentPageURL      string
	CheckoutFormContent string
}

func NewInitiator(params InitiatorParams) (*Initiator, error) {
	if params.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultGatewayTimeout
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Publisher == nil {
		params.Publisher = events.NopPublisher{}
	}
	return &Initiator{
		gateway:     params.Gateway,
		orders:      params.Orders,
		callbackURL: params.CallbackURL,
		timeout:     params.Timeout,
		logg:        params.Logger,
		observer:    params.Observer,
		publisher:   params.Publisher,
	}, nil
}

// Initiate builds the gateway payload from the order's persisted items and
// address snapshots, waits for the gateway, and stores the session. On any
// failure the order is left as it was so the client can retry with its id.
func (i *Initiator) Initiate(ctx context.Context, order *models.Order, customer Customer) (*Outcome, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	orderID := order.ID.String()
	ctx = i.logg.WithOrderID(ctx, orderID)
	ctx = i.logg.WithConversationID(ctx, order.ConversationID)

	if !order.Status.AcceptsPaymentSession() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot start a payment", order.Status)).WithOrderID(orderID)
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no items").WithOrderID(orderID)
	}

	req := BuildSessionRequest(order, customer, i.callbackURL)
	session, err := i.createSession(ctx, req)
	if err != nil {
		if be, ok := AsBusinessError(err); ok {
			i.logg.Warn(i.logg.WithField(ctx, "provider_code", be.Code), "payment session rejected by gateway")
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentRejected, err, rejectionMessage(be)).
				WithOrderID(orderID).
				WithProviderCode(be.Code)
		}
		i.logg.Error(ctx, "payment session request failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentUnavailable, err, "payment gateway unavailable").WithOrderID(orderID)
	}
	if session.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodePaymentUnavailable, "payment gateway returned no session token").WithOrderID(orderID)
	}

	// The session exists at the gateway now; record it even if the caller went away.
	writeCtx := context.WithoutCancel(ctx)
	err = i.orders.AttachPaymentSession(writeCtx, order.ID, orders.PaymentSession{
		Provider: i.gateway.Name(),
		Token:    session.Token,
		PageURL:  session.PageURL,
	})
	if err != nil {
		if errors.Is(err, orders.ErrStatusConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order changed state during payment initialization").WithOrderID(orderID)
		}
		i.logg.Error(ctx, "failed to store payment session", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentUnavailable, err, "payment session could not be recorded").WithOrderID(orderID)
	}

	i.logg.Info(ctx, "payment session created")
	err = i.publisher.Publish(writeCtx, events.OrderPaymentInitiated, events.OrderEvent{
		OrderID:        orderID,
		ConversationID: order.ConversationID,
		Provider:       i.gateway.Name(),
		Total:          order.Total.StringFixed(2),
		Currency:       order.Currency.String(),
	})
	if err != nil {
		i.logg.Warn(i.logg.WithField(ctx, "error", err.Error()), "order event not published")
	}
	return &Outcome{
		OrderID:             order.ID,
		Token:               session.Token,
		PaymentPageURL:      session.PageURL,
		CheckoutFormContent: session.CheckoutFormContent,
	}, nil
}

// Retry starts a new session for an existing order without touching its
// items or totals.
func (i *Initiator) Retry(ctx context.Context, orderID uuid.UUID, customer Customer) (*Outcome, error) {
	order, err := i.orders.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order").WithOrderID(orderID.String())
	}
	return i.Initiate(ctx, order, customer)
}

func (i *Initiator) createSession(ctx context.Context, req SessionRequest) (Session, error) {
	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	session, err := i.gateway.CreateSession(callCtx, req)
	i.observe("create_session", err, time.Since(start))
	return session, err
}

func (i *Initiator) observe(operation string, err error, elapsed time.Duration) {
	if i.observer == nil {
		return
	}
	i.observer.ObserveGatewayCall(i.gateway.Name(), operation, outcomeOf(err), elapsed)
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if _, ok := AsBusinessError(err); ok {
		return OutcomeRejected
	}
	return OutcomeError
}

func rejectionMessage(be *BusinessError) string {
	if be.Message != "" {
		return be.Message
	}
	return "payment was rejected by the gateway"
}
