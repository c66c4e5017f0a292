package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/csdakkoni/ecommerce-sub000/internal/events"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fakeGateway struct {
	session   Session
	createErr error
	result    Result
	resultErr error
	requests  []SessionRequest
	deadline  bool
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	_, g.deadline = ctx.Deadline()
	g.requests = append(g.requests, req)
	return g.session, g.createErr
}

func (g *fakeGateway) RetrieveResult(ctx context.Context, token string) (Result, error) {
	return g.result, g.resultErr
}

type recordedEvent struct {
	Type  events.Type
	Event events.OrderEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, t events.Type, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: t, Event: e})
	return nil
}

type gatewayCall struct {
	provider, operation, outcome string
}

type recordingObserver struct {
	calls []gatewayCall
}

func (o *recordingObserver) ObserveGatewayCall(provider, operation, outcome string, _ time.Duration) {
	o.calls = append(o.calls, gatewayCall{provider, operation, outcome})
}

func sampleOrder() *models.Order {
	id := uuid.New()
	return &models.Order{
		ID:             id,
		Status:         enums.OrderStatusPending,
		Currency:       enums.CurrencyTRY,
		Locale:         "tr-TR",
		Subtotal:       d("1250.50"),
		ShippingCost:   d("100"),
		Discount:       d("0"),
		Total:          d("1350.50"),
		ConversationID: "01J0CONVERSATION",
		CustomerEmail:  "ayse@example.com",
		CustomerName:   "Ayse Nur Yilmaz",
		CustomerPhone:  "+905551112233",
		ShippingAddress: types.Address{
			ContactName: "Ayse Nur Yilmaz", Address: "Bagdat Cd. 10", City: "Istanbul",
			District: "Kadikoy", ZipCode: "34710", Country: "Turkey",
		},
		BillingAddress: types.Address{
			ContactName: "Ayse Nur Yilmaz", Address: "Bagdat Cd. 10", City: "Istanbul",
			District: "Kadikoy", ZipCode: "34710", Country: "Turkey",
		},
		Items: []models.OrderItem{
			{
				ID: uuid.New(), OrderID: id, ProductID: uuid.New(), ProductName: "Linen Curtain",
				Category: "Home Textile", SubCategory: "Curtains", UnitType: enums.UnitMeter,
				Quantity: d("2.5"), UnitPrice: d("420.20"), LineTotal: d("1050.50"),
			},
			{
				ID: uuid.New(), OrderID: id, ProductID: uuid.New(), ProductName: "Bath Towel",
				UnitType: enums.UnitPiece, Quantity: d("2"), UnitPrice: d("100"), LineTotal: d("200"),
			},
		},
	}
}

// persistOrder writes the order and its items through the real repository.
func persistOrder(t *testing.T, db *gorm.DB, order *models.Order) {
	t.Helper()
	repo := orders.NewRepository(db)
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	require.NoError(t, repo.CreateOrderItems(context.Background(), order.Items))
}
