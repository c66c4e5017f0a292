package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csdakkoni/ecommerce-sub000/api/middleware"
	checkoutsvc "github.com/csdakkoni/ecommerce-sub000/internal/checkout"
	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

type stubCheckoutService struct {
	got *checkoutsvc.Request
	out *payment.Outcome
	err error
}

func (s *stubCheckoutService) Execute(_ context.Context, req checkoutsvc.Request) (*payment.Outcome, error) {
	s.got = &req
	return s.out, s.err
}

const validCheckoutBody = `{
  "cartItems": [
    {"id": "0f8c2d8e-7a0b-4b0e-9d8a-1c2b3d4e5f60", "quantity": 2.5, "name": "Linen", "price": 1, "variantId": "v-1", "optionValueIds": ["v-2"], "image": "x.jpg"}
  ],
  "customer": {"email": "ayse@example.com", "firstName": "Ayse", "lastName": "Yilmaz", "phone": "+905551112233", "identityNumber": "11111111111"},
  "shippingAddress": {"address": "Bagdat Cd. 10", "city": "Istanbul", "district": "Kadikoy"},
  "currency": "try",
  "locale": "tr-TR",
  "couponCode": "WELCOME50"
}`

func TestPaymentInitSuccess(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubCheckoutService{out: &payment.Outcome{
		OrderID:             orderID,
		Token:               "tok-1",
		PaymentPageURL:      "https://pay.example/tok-1",
		CheckoutFormContent: "<script/>",
	}}

	req := httptest.NewRequest(http.MethodPost, "/payment/init", strings.NewReader(validCheckoutBody))
	req.Header.Set("Idempotency-Key", "cart-1")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	lb := []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")}
	middleware.ClientIPResolver(lb)(PaymentInit(svc, nil)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, orderID.String(), body["orderId"])
	assert.Equal(t, "tok-1", body["token"])
	assert.Equal(t, "<script/>", body["checkoutFormContent"])
	assert.Equal(t, "https://pay.example/tok-1", body["paymentPageUrl"])
	_, enveloped := body["data"]
	assert.False(t, enveloped)

	got := svc.got
	require.NotNil(t, got)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "2.5", got.Lines[0].Quantity.String())
	assert.Equal(t, []string{"v-2", "v-1"}, got.Lines[0].OptionValueIDs)
	require.NotNil(t, got.Lines[0].ClaimedPrice)
	assert.Equal(t, "TRY", got.Currency)
	assert.Equal(t, "cart-1", got.IdempotencyKey)
	assert.Equal(t, "203.0.113.9", got.ClientIP)
	assert.Equal(t, "11111111111", got.Customer.IdentityNumber)
	assert.Nil(t, got.BillingAddress)
}

func TestPaymentInitRejectsMissingCustomerFields(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{}
	body := `{"cartItems":[{"id":"x","quantity":1}],"customer":{"email":"not-an-email"},"shippingAddress":{"address":"a","city":"b"}}`
	rec := httptest.NewRecorder()
	PaymentInit(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment/init", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.got, "service must not run on invalid input")

	var payload types.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "cart", payload.Scope)
	details, ok := payload.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["customer.email"])
	assert.Equal(t, "is required", details["customer.phone"])
	assert.NotEmpty(t, payload.Error)
}

func TestPaymentInitSurfacesOrderIDOnPaymentFailure(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentRejected, "Invalid buyer address").
		WithProviderCode("10051").
		WithOrderID(orderID.String())}

	rec := httptest.NewRecorder()
	PaymentInit(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment/init", strings.NewReader(validCheckoutBody)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload types.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Invalid buyer address", payload.Error)
	assert.Equal(t, "10051", payload.ErrorCode)
	assert.Equal(t, "payment", payload.Scope)
	assert.Equal(t, orderID.String(), payload.OrderID)
}

func TestPaymentInitCatalogFailureIsServerError(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeCatalogUnavailable, "db timeout")}
	rec := httptest.NewRecorder()
	PaymentInit(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payment/init", strings.NewReader(validCheckoutBody)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var payload types.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "cart", payload.Scope)
	assert.NotContains(t, payload.Error, "db timeout")
}

type stubRetrier struct {
	orderID  uuid.UUID
	customer payment.Customer
	err      error
}

func (s *stubRetrier) Retry(_ context.Context, orderID uuid.UUID, customer payment.Customer) (*payment.Outcome, error) {
	s.orderID = orderID
	s.customer = customer
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Outcome{OrderID: orderID, Token: "tok-retry", PaymentPageURL: "https://pay.example/retry"}, nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestPaymentRetry(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubRetrier{}
	req := httptest.NewRequest(http.MethodPost, "/payment/orders/"+orderID.String()+"/retry",
		strings.NewReader(`{"customer":{"identityNumber":"12345678901","firstName":" Ayse "}}`))
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	PaymentRetry(svc, nil).ServeHTTP(rec, withURLParam(req, "orderId", orderID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.orderID)
	assert.Equal(t, "12345678901", svc.customer.IdentityNumber)
	assert.Equal(t, "Ayse", svc.customer.FirstName)
	assert.Equal(t, "198.51.100.7", svc.customer.IP)
	assert.Contains(t, rec.Body.String(), `"token":"tok-retry"`)
}

func TestPaymentRetryWithoutBody(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubRetrier{}
	req := httptest.NewRequest(http.MethodPost, "/payment/orders/"+orderID.String()+"/retry", http.NoBody)
	rec := httptest.NewRecorder()
	PaymentRetry(svc, nil).ServeHTTP(rec, withURLParam(req, "orderId", orderID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.orderID)
}

func TestPaymentRetryRejectsBadOrderID(t *testing.T) {
	t.Parallel()

	svc := &stubRetrier{}
	req := httptest.NewRequest(http.MethodPost, "/payment/orders/nope/retry", http.NoBody)
	rec := httptest.NewRecorder()
	PaymentRetry(svc, nil).ServeHTTP(rec, withURLParam(req, "orderId", "nope"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, svc.orderID)
}

func TestPaymentRetryPaidOrderIsStateConflict(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubRetrier{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is paid and cannot start a payment").WithOrderID(orderID.String())}
	req := httptest.NewRequest(http.MethodPost, "/payment/orders/"+orderID.String()+"/retry", http.NoBody)
	rec := httptest.NewRecorder()
	PaymentRetry(svc, nil).ServeHTTP(rec, withURLParam(req, "orderId", orderID.String()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type stubSettler struct {
	token string
	out   *payment.CallbackOutcome
	err   error
}

func (s *stubSettler) Handle(_ context.Context, token string) (*payment.CallbackOutcome, error) {
	s.token = token
	return s.out, s.err
}

func TestPaymentCallbackRedirects(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	tests := []struct {
		name       string
		out        *payment.CallbackOutcome
		err        error
		wantStatus string
		wantOrder  string
	}{
		{"paid", &payment.CallbackOutcome{OrderID: orderID, Paid: true}, nil, "success", orderID.String()},
		{"declined", &payment.CallbackOutcome{OrderID: orderID, ErrorCode: "10051"}, nil, "failure", orderID.String()},
		{"gateway down", nil, pkgerrors.New(pkgerrors.CodePaymentUnavailable, "timeout"), "error", ""},
	}

	for _, tt := range tests {
		svc := &stubSettler{out: tt.out, err: tt.err}
		req := httptest.NewRequest(http.MethodPost, "/payment/callback", strings.NewReader("token=tok-9"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		PaymentCallback(svc, "https://shop.example.com/", nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code, tt.name)
		assert.Equal(t, "tok-9", svc.token, tt.name)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err, tt.name)
		assert.Equal(t, "shop.example.com", loc.Host, tt.name)
		assert.Equal(t, "/checkout/result", loc.Path, tt.name)
		assert.Equal(t, tt.wantStatus, loc.Query().Get("status"), tt.name)
		assert.Equal(t, tt.wantOrder, loc.Query().Get("orderId"), tt.name)
	}
}

func TestPaymentCallbackReadsQueryToken(t *testing.T) {
	t.Parallel()

	svc := &stubSettler{out: &payment.CallbackOutcome{OrderID: uuid.New(), Paid: true}}
	rec := httptest.NewRecorder()
	PaymentCallback(svc, "https://shop.example.com", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback?session_id=cs_test_1", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "cs_test_1", svc.token)
}

func TestPaymentCallbackRequiresToken(t *testing.T) {
	t.Parallel()

	svc := &stubSettler{}
	rec := httptest.NewRecorder()
	PaymentCallback(svc, "https://shop.example.com", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.token)
}
