package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/internal/events"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

type CallbackParams struct {
	Gateway   Gateway
	Orders    orders.Repository
	Publisher events.Publisher
	Timeout   time.Duration
	Logger    *logger.Logger
	Observer  GatewayObserver
}

// CallbackHandler settles an order once the customer returns from the
// hosted payment page.
type CallbackHandler struct {
	gateway   Gateway
	orders    orders.Repository
	publisher events.Publisher
	timeout   time.Duration
	logg      *logger.Logger
	observer  GatewayObserver
	now       func() time.Time
}

// CallbackOutcome tells the caller where to send the customer.
type CallbackOutcome struct {
	OrderID   uuid.UUID
	Paid      bool
	ErrorCode string
}

func NewCallbackHandler(params CallbackParams) (*CallbackHandler, error) {
	if params.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Publisher == nil {
		params.Publisher = events.NopPublisher{}
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultGatewayTimeout
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &CallbackHandler{
		gateway:   params.Gateway,
		orders:    params.Orders,
		publisher: params.Publisher,
		timeout:   params.Timeout,
		logg:      params.Logger,
		observer:  params.Observer,
		now:       time.Now,
	}, nil
}

// Handle asks the gateway for the session result. A successful payment
// moves the order from pending_payment to paid; a failed one leaves it
// untouched so the customer can retry.
func (h *CallbackHandler) Handle(ctx context.Context, token string) (*CallbackOutcome, error) {
	return h.settle(ctx, token, true)
}

// Reconcile settles an order whose callback never arrived. An unpaid result
// is not reported since the customer may still be on the payment page.
func (h *CallbackHandler) Reconcile(ctx context.Context, token string) (*CallbackOutcome, error) {
	return h.settle(ctx, token, false)
}

func (h *CallbackHandler) settle(ctx context.Context, token string, reportFailure bool) (*CallbackOutcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	result, err := h.retrieve(ctx, token)
	if err != nil {
		if be, ok := AsBusinessError(err); ok {
			result = Result{Token: token, ErrorCode: be.Code, ErrorMessage: be.Message}
		} else {
			h.logg.Error(ctx, "payment result lookup failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentUnavailable, err, "payment result unavailable")
		}
	}

	order, err := h.findOrder(ctx, token, result.ConversationID)
	if err != nil {
		return nil, err
	}
	ctx = h.logg.WithOrderID(ctx, order.ID.String())
	ctx = h.logg.WithConversationID(ctx, order.ConversationID)

	if result.ConversationID != "" && result.ConversationID != order.ConversationID {
		h.logg.Warn(ctx, "payment result conversation id does not match order")
		result.Paid = false
		result.ErrorCode = "CONVERSATION_MISMATCH"
	}

	outcome := &CallbackOutcome{OrderID: order.ID, Paid: result.Paid, ErrorCode: result.ErrorCode}
	if !result.Paid {
		if reportFailure {
			h.logg.Warn(h.logg.WithField(ctx, "provider_code", result.ErrorCode), "payment not completed")
			h.publish(ctx, events.OrderPaymentFailed, order, result)
		}
		return outcome, nil
	}

	changed, err := h.orders.MarkPaid(context.WithoutCancel(ctx), order.ID, h.now())
	if err != nil {
		h.logg.Error(ctx, "failed to mark order paid", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order could not be updated").WithOrderID(order.ID.String())
	}
	if !changed {
		// Repeated callback for an order that already settled.
		h.logg.Info(ctx, "payment callback ignored; order not awaiting payment")
		return outcome, nil
	}

	h.logg.Info(ctx, "order paid")
	h.publish(ctx, events.OrderPaid, order, result)
	return outcome, nil
}

func (h *CallbackHandler) retrieve(ctx context.Context, token string) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	result, err := h.gateway.RetrieveResult(callCtx, token)
	if h.observer != nil {
		h.observer.ObserveGatewayCall(h.gateway.Name(), "retrieve_result", outcomeOf(err), time.Since(start))
	}
	return result, err
}

func (h *CallbackHandler) findOrder(ctx context.Context, token, conversationID string) (*models.Order, error) {
	order, err := h.orders.FindOrderByPaymentToken(ctx, token)
	if errors.Is(err, orders.ErrOrderNotFound) && conversationID != "" {
		order, err = h.orders.FindOrderByConversationID(ctx, conversationID)
	}
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for payment token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (h *CallbackHandler) publish(ctx context.Context, eventType events.Type, order *models.Order, result Result) {
	err := h.publisher.Publish(ctx, eventType, events.OrderEvent{
		OrderID:        order.ID.String(),
		ConversationID: order.ConversationID,
		Provider:       h.gateway.Name(),
		PaymentID:      result.PaymentID,
		ErrorCode:      result.ErrorCode,
		Total:          order.Total.StringFixed(2),
		Currency:       order.Currency.String(),
	})
	if err != nil {
		h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "order event not published")
	}
}
