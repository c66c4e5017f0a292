package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csdakkoni/ecommerce-sub000/internal/events"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/dbtest"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
)

func newCallbackFixture(t *testing.T, result Result) (*CallbackHandler, orders.Repository, *fakeGateway, *recordingPublisher, string) {
	t.Helper()
	db := dbtest.Open(t)
	repo := orders.NewRepository(db)
	order := sampleOrder()
	persistOrder(t, db, order)
	require.NoError(t, repo.AttachPaymentSession(context.Background(), order.ID, orders.PaymentSession{Provider: "fake", Token: "tok-1"}))

	gw := &fakeGateway{result: result}
	pub := &recordingPublisher{}
	h, err := NewCallbackHandler(CallbackParams{Gateway: gw, Orders: repo, Publisher: pub})
	require.NoError(t, err)
	return h, repo, gw, pub, order.ID.String()
}

func TestCallbackMarksOrderPaid(t *testing.T) {
	h, repo, _, pub, orderID := newCallbackFixture(t, Result{Token: "tok-1", ConversationID: "01J0CONVERSATION", PaymentID: "pay-1", Paid: true})

	out, err := h.Handle(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, out.Paid)
	assert.Equal(t, orderID, out.OrderID.String())

	stored, err := repo.FindOrder(context.Background(), out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.OrderPaid, pub.events[0].Type)
	assert.Equal(t, "pay-1", pub.events[0].Event.PaymentID)

	// A repeated callback does not publish twice.
	_, err = h.Handle(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestCallbackFailureLeavesOrderUntouched(t *testing.T) {
	h, repo, _, pub, _ := newCallbackFixture(t, Result{Token: "tok-1", ErrorCode: "10051", ErrorMessage: "insufficient funds"})

	out, err := h.Handle(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.False(t, out.Paid)
	assert.Equal(t, "10051", out.ErrorCode)

	stored, err := repo.FindOrder(context.Background(), out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, stored.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.OrderPaymentFailed, pub.events[0].Type)
}

func TestCallbackConversationMismatchIsNotPaid(t *testing.T) {
	h, repo, _, _, _ := newCallbackFixture(t, Result{Token: "tok-1", ConversationID: "someone-else", Paid: true})

	out, err := h.Handle(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.False(t, out.Paid)

	stored, err := repo.FindOrder(context.Background(), out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, stored.Status)
}

func TestCallbackErrors(t *testing.T) {
	h, _, gw, _, _ := newCallbackFixture(t, Result{})

	_, err := h.Handle(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.Handle(context.Background(), "unknown-token")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	gw.resultErr = errors.New("gateway down")
	_, err = h.Handle(context.Background(), "tok-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentUnavailable))
}

func TestReconcileSettlesPaidOrderOnly(t *testing.T) {
	h, repo, gw, pub, _ := newCallbackFixture(t, Result{Token: "tok-1", ErrorCode: "unpaid"})

	out, err := h.Reconcile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.False(t, out.Paid)
	assert.Empty(t, pub.events, "an unfinished session is not a failure")

	gw.result = Result{Token: "tok-1", ConversationID: "01J0CONVERSATION", PaymentID: "pay-9", Paid: true}
	out, err = h.Reconcile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, out.Paid)

	stored, err := repo.FindOrder(context.Background(), out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.OrderPaid, pub.events[0].Type)
}
