package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/csdakkoni/ecommerce-sub000/internal/cart"
	"github.com/csdakkoni/ecommerce-sub000/internal/catalog"
	"github.com/csdakkoni/ecommerce-sub000/internal/orders"
	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/dbtest"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fakeInitiator struct {
	mu        sync.Mutex
	orders    []*models.Order
	customers []payment.Customer
	err       error
}

func (f *fakeInitiator) Initiate(_ context.Context, order *models.Order, customer payment.Customer) (*payment.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	f.customers = append(f.customers, customer)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Outcome{
		OrderID:             order.ID,
		Token:               "tok-" + order.ConversationID,
		PaymentPageURL:      "https://pay.example/" + order.ConversationID,
		CheckoutFormContent: "<script/>",
	}, nil
}

func (f *fakeInitiator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type memoryKeys struct {
	mu       sync.Mutex
	data     map[string]string
	setNXErr error
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{data: map[string]string{}}
}

func (m *memoryKeys) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setNXErr != nil {
		return false, m.setNXErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryKeys) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKeys) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryKeys) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKeys) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

type outcomeRecorder struct {
	mu    sync.Mutex
	codes []string
}

func (o *outcomeRecorder) ObserveCheckout(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, code)
}

type catalogFunc func(ctx context.Context, ids []uuid.UUID, coupon string) (*catalog.Snapshot, error)

func (f catalogFunc) Snapshot(ctx context.Context, ids []uuid.UUID, coupon string) (*catalog.Snapshot, error) {
	return f(ctx, ids, coupon)
}

// memoryWriter assigns ids without a database; used where concurrency would
// trip SQLite's shared-cache locking.
type memoryWriter struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (w *memoryWriter) CreateOrder(_ context.Context, header orders.Header, lines []cart.ValidatedLine) (*models.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	order := &models.Order{
		ID:             uuid.New(),
		Status:         enums.OrderStatusPending,
		ConversationID: header.ConversationID,
		Total:          header.Totals.Total,
	}
	w.orders = append(w.orders, order)
	return order, nil
}

type fixture struct {
	db       *gorm.DB
	towel    *models.Product
	curtain  *models.Product
	inactive *models.Product
	payments *fakeInitiator
	keys     *memoryKeys
	observer *outcomeRecorder
	resolver *pricing.CurrencyResolver
	service  Service
}

func newFixture(t *testing.T, withGuard bool) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		db:       db,
		towel:    dbtest.CreateProduct(t, db, dbtest.ProductSpec{Name: "Cotton Towel", PriceTRY: "500", PriceEUR: "50"}),
		curtain:  dbtest.CreateProduct(t, db, dbtest.ProductSpec{Name: "Linen Curtain", UnitType: enums.UnitMeter, MinQty: "1", StepQty: "0.5", PriceTRY: "420.20", PriceEUR: "42"}),
		inactive: dbtest.CreateProduct(t, db, dbtest.ProductSpec{Name: "Retired Runner", Inactive: true}),
		payments: &fakeInitiator{},
		keys:     newMemoryKeys(),
		observer: &outcomeRecorder{},
		resolver: pricing.NewCurrencyResolver(pricing.DefaultSchedules()),
	}
	require.NoError(t, db.Create(&models.Coupon{Code: "WELCOME50", IsActive: true, DiscountTRY: d("50"), DiscountEUR: d("5")}).Error)

	writer, err := orders.NewWriter(orders.NewRepository(db), nil, nil)
	require.NoError(t, err)
	params := Params{
		Catalog:  catalog.NewRepository(db),
		Resolver: f.resolver,
		Writer:   writer,
		Payments: f.payments,
		Observer: f.observer,
	}
	if withGuard {
		guard, err := NewGuard(f.keys, time.Hour)
		require.NoError(t, err)
		params.Guard = guard
	}
	f.service, err = NewService(params)
	require.NoError(t, err)
	return f
}

func (f *fixture) request(lines ...cart.Line) Request {
	return Request{
		Lines: lines,
		Customer: Customer{
			Email:     "Ayse@Example.com ",
			FirstName: "Ayse",
			LastName:  "Yilmaz",
			Phone:     "+905551112233",
		},
		ShippingAddress: types.Address{Address: "Bagdat Cd. 10", City: "Istanbul", District: "Kadikoy"},
		Locale:          "tr-TR",
		ClientIP:        "10.0.0.1",
	}
}

func line(product *models.Product, qty string) cart.Line {
	return cart.Line{ProductID: product.ID.String(), Quantity: d(qty), Name: product.Name}
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}
