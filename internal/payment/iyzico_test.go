package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	"github.com/csdakkoni/ecommerce-sub000/pkg/iyzico"
)

type stubIyzico struct {
	initReq   iyzico.CheckoutFormRequest
	initCalls int
	initResp  *iyzico.CheckoutFormResponse
	initErr   error
	detail    *iyzico.CheckoutFormDetail
	detailErr error
}

func (s *stubIyzico) InitializeCheckoutForm(_ context.Context, req iyzico.CheckoutFormRequest) (*iyzico.CheckoutFormResponse, error) {
	s.initCalls++
	s.initReq = req
	return s.initResp, s.initErr
}

func (s *stubIyzico) RetrieveCheckoutForm(_ context.Context, _ iyzico.CheckoutFormDetailRequest) (*iyzico.CheckoutFormDetail, error) {
	return s.detail, s.detailErr
}

func TestIyzicoCreateSessionMapsPayload(t *testing.T) {
	api := &stubIyzico{initResp: &iyzico.CheckoutFormResponse{
		Token: "tok-1", PaymentPageURL: "https://pay/tok-1", CheckoutFormContent: "<script/>",
	}}
	gw, err := NewIyzicoGateway(api, config.IyzicoConfig{})
	require.NoError(t, err)

	req := BuildSessionRequest(sampleOrder(), Customer{IdentityNumber: "12345678901", IP: "10.0.0.1"}, "https://shop/cb")
	session, err := gw.CreateSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "<script/>", session.CheckoutFormContent)

	sent := api.initReq
	assert.Equal(t, "tr", sent.Locale)
	assert.Equal(t, "1350.50", sent.Price)
	assert.Equal(t, "1350.50", sent.PaidPrice)
	assert.Equal(t, "TRY", sent.Currency)
	assert.Equal(t, "12345678901", sent.Buyer.IdentityNumber)
	assert.Equal(t, "10.0.0.1", sent.Buyer.IP)
	assert.Equal(t, "Bagdat Cd. 10, Kadikoy", sent.ShippingAddress.Address)
	require.Len(t, sent.BasketItems, 3)
	assert.Equal(t, iyzico.ItemTypePhysical, sent.BasketItems[0].ItemType)
	assert.Equal(t, "1050.50", sent.BasketItems[0].Price)
	assert.Equal(t, iyzico.ItemTypeVirtual, sent.BasketItems[2].ItemType)
}

func TestIyzicoIdentityRequiredWithoutPlaceholderPolicy(t *testing.T) {
	api := &stubIyzico{}
	gw, err := NewIyzicoGateway(api, config.IyzicoConfig{AllowIdentityPlaceholder: false})
	require.NoError(t, err)

	_, err = gw.CreateSession(context.Background(), BuildSessionRequest(sampleOrder(), Customer{}, ""))
	be, ok := AsBusinessError(err)
	require.True(t, ok, "expected business error, got %v", err)
	assert.Equal(t, CodeIdentityRequired, be.Code)
	assert.Zero(t, api.initCalls, "gateway must not be called")
}

func TestIyzicoIdentityPlaceholderWhenAllowed(t *testing.T) {
	api := &stubIyzico{initResp: &iyzico.CheckoutFormResponse{Token: "tok"}}
	gw, err := NewIyzicoGateway(api, config.IyzicoConfig{AllowIdentityPlaceholder: true})
	require.NoError(t, err)

	_, err = gw.CreateSession(context.Background(), BuildSessionRequest(sampleOrder(), Customer{}, ""))
	require.NoError(t, err)
	assert.Equal(t, identityPlaceholder, api.initReq.Buyer.IdentityNumber)
	assert.Equal(t, fallbackBuyerIP, api.initReq.Buyer.IP)
}

func TestIyzicoErrorMapping(t *testing.T) {
	api := &stubIyzico{initErr: &iyzico.APIError{ErrorCode: "12", ErrorMessage: "Invalid buyer"}}
	gw, _ := NewIyzicoGateway(api, config.IyzicoConfig{AllowIdentityPlaceholder: true})

	_, err := gw.CreateSession(context.Background(), BuildSessionRequest(sampleOrder(), Customer{}, ""))
	be, ok := AsBusinessError(err)
	require.True(t, ok)
	assert.Equal(t, "12", be.Code)
	assert.Equal(t, "Invalid buyer", be.Message)

	transport := errors.New("connection reset")
	api.initErr = transport
	_, err = gw.CreateSession(context.Background(), BuildSessionRequest(sampleOrder(), Customer{}, ""))
	_, ok = AsBusinessError(err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, transport)
}

func TestIyzicoRetrieveResult(t *testing.T) {
	api := &stubIyzico{detail: &iyzico.CheckoutFormDetail{PaymentID: "pay-1", PaymentStatus: "SUCCESS"}}
	gw, _ := NewIyzicoGateway(api, config.IyzicoConfig{})

	res, err := gw.RetrieveResult(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Equal(t, "pay-1", res.PaymentID)

	api.detail, api.detailErr = nil, &iyzico.APIError{ErrorCode: "10051", ErrorMessage: "insufficient funds"}
	res, err = gw.RetrieveResult(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, res.Paid)
	assert.Equal(t, "10051", res.ErrorCode)
}

func TestIyzicoLocale(t *testing.T) {
	assert.Equal(t, "tr", iyzicoLocale("TR"))
	assert.Equal(t, "tr", iyzicoLocale("tr_TR"))
	assert.Equal(t, "en", iyzicoLocale("de-DE"))
	assert.Equal(t, "en", iyzicoLocale(""))
}
