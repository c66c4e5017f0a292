package orders

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csdakkoni/ecommerce-sub000/internal/cart"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/dbtest"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

type recordingObserver struct {
	mu    sync.Mutex
	steps []WriteState
}

func (o *recordingObserver) ObserveTransition(_, to WriteState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, to)
}

type faultyRepo struct {
	Repository
	itemsErr  error
	deleteErr error
	headerErr error
}

func (f *faultyRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	if f.headerErr != nil {
		return f.headerErr
	}
	return f.Repository.CreateOrder(ctx, order)
}

func (f *faultyRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if f.itemsErr != nil {
		return f.itemsErr
	}
	return f.Repository.CreateOrderItems(ctx, items)
}

func (f *faultyRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Repository.DeleteOrder(ctx, id)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleHeader() Header {
	addr := types.Address{Address: "Bagdat Cad. 12", City: "Istanbul", Country: "Turkey"}
	return Header{
		Currency:        enums.CurrencyTRY,
		Locale:          "tr",
		Totals:          pricing.Totals{Subtotal: d("1000"), Discount: d("50"), Shipping: d("100"), Total: d("1050")},
		ConversationID:  uuid.NewString(),
		CustomerEmail:   "ayse@example.com",
		CustomerName:    "Ayse Yilmaz",
		CustomerPhone:   "+905551112233",
		ShippingAddress: addr,
		BillingAddress:  addr,
	}
}

func sampleLines() []cart.ValidatedLine {
	return []cart.ValidatedLine{
		{ProductID: uuid.New(), Name: "Towel", Category: "Bath", SubCategory: "Towels", UnitType: enums.UnitPiece, Quantity: d("2"), UnitPrice: d("250"), LineTotal: d("500")},
		{ProductID: uuid.New(), Name: "Linen", Category: "Fabric", SubCategory: "Linen", UnitType: enums.UnitMeter, Quantity: d("2.5"), UnitPrice: d("200"), LineTotal: d("500"),
			Options: types.SelectedOptions{{GroupName: "Color", ValueID: "v1", Label: "Sand"}}},
	}
}

func TestCreateOrderCommitsHeaderAndItems(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	observer := &recordingObserver{}
	writer, err := NewWriter(repo, logger.Nop(), observer)
	require.NoError(t, err)

	order, err := writer.CreateOrder(context.Background(), sampleHeader(), sampleLines())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, []WriteState{StateHeaderCreated, StateItemsCommitted}, observer.steps)

	stored, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Towel", stored.Items[0].ProductName)
	assert.True(t, stored.Items[1].Quantity.Equal(d("2.5")))
	assert.Equal(t, "Sand", stored.Items[1].SelectedOptions[0].Label)
	assert.True(t, stored.Total.Equal(stored.Subtotal.Sub(stored.Discount).Add(stored.ShippingCost)))
	assert.Equal(t, "Istanbul", stored.ShippingAddress.City)
}

func TestCreateOrderRollsBackHeaderWhenItemsFail(t *testing.T) {
	db := dbtest.Open(t)
	base := NewRepository(db)
	repo := &faultyRepo{Repository: base, itemsErr: errors.New("items insert failed")}
	observer := &recordingObserver{}
	writer, err := NewWriter(repo, logger.Nop(), observer)
	require.NoError(t, err)

	header := sampleHeader()
	_, err = writer.CreateOrder(context.Background(), header, sampleLines())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLedgerWrite))
	assert.Equal(t, []WriteState{StateHeaderCreated, StateRolledBack}, observer.steps)

	_, err = base.FindOrderByConversationID(context.Background(), header.ConversationID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderReportsOriginalErrorWhenCompensationFails(t *testing.T) {
	db := dbtest.Open(t)
	itemsErr := errors.New("items insert failed")
	repo := &faultyRepo{Repository: NewRepository(db), itemsErr: itemsErr, deleteErr: errors.New("delete failed")}
	observer := &recordingObserver{}
	buf := &bytes.Buffer{}
	writer, err := NewWriter(repo, logger.New(logger.Options{ServiceName: "test", Output: buf}), observer)
	require.NoError(t, err)

	_, err = writer.CreateOrder(context.Background(), sampleHeader(), sampleLines())
	require.Error(t, err)
	assert.ErrorIs(t, err, itemsErr)
	assert.Equal(t, []WriteState{StateHeaderCreated, StateOrphaned}, observer.steps)
	assert.Contains(t, buf.String(), "compensating order delete failed")
	assert.Contains(t, buf.String(), "delete failed")
}

func TestCreateOrderHeaderFailureWritesNothing(t *testing.T) {
	db := dbtest.Open(t)
	repo := &faultyRepo{Repository: NewRepository(db), headerErr: errors.New("header insert failed")}
	observer := &recordingObserver{}
	writer, err := NewWriter(repo, nil, observer)
	require.NoError(t, err)

	_, err = writer.CreateOrder(context.Background(), sampleHeader(), sampleLines())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLedgerWrite))
	assert.Equal(t, []WriteState{StateFailed}, observer.steps)
}

func TestCreateOrderRejectsEmptyAndInconsistentInput(t *testing.T) {
	db := dbtest.Open(t)
	writer, err := NewWriter(NewRepository(db), nil, nil)
	require.NoError(t, err)

	_, err = writer.CreateOrder(context.Background(), sampleHeader(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCartRejected))

	header := sampleHeader()
	header.Totals.Total = d("1")
	_, err = writer.CreateOrder(context.Background(), header, sampleLines())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestCreateOrderDoesNotDeduplicate(t *testing.T) {
	db := dbtest.Open(t)
	writer, err := NewWriter(NewRepository(db), nil, nil)
	require.NoError(t, err)

	first := sampleHeader()
	second := sampleHeader()
	a, err := writer.CreateOrder(context.Background(), first, sampleLines())
	require.NoError(t, err)
	b, err := writer.CreateOrder(context.Background(), second, sampleLines())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateOrderReusedConversationIDIsConflict(t *testing.T) {
	db := dbtest.Open(t)
	observer := &recordingObserver{}
	writer, err := NewWriter(NewRepository(db), nil, observer)
	require.NoError(t, err)

	header := sampleHeader()
	_, err = writer.CreateOrder(context.Background(), header, sampleLines())
	require.NoError(t, err)

	_, err = writer.CreateOrder(context.Background(), header, sampleLines())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, StateFailed, observer.steps[len(observer.steps)-1])
}
