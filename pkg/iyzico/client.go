package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/csdakkoni/ecommerce-sub000/pkg/config"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

const (
	initializePath = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	detailPath     = "/payment/iyzipos/checkoutform/auth/ecom/detail"

	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	errAPIKeyRequired    = errors.New("iyzico api key is required")
	errSecretKeyRequired = errors.New("iyzico secret key is required")
	errBaseURLRequired   = errors.New("iyzico base url is required")
)

// APIError is a well-formed response with status=failure. It is the
// gateway rejecting the request, not a transport problem.
type APIError struct {
	ErrorCode    string
	ErrorMessage string
	ErrorGroup   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iyzico rejected request: %s %s", e.ErrorCode, e.ErrorMessage)
}

// Client signs and sends checkout-form requests.
type Client struct {
	httpClient *http.Client
	apiKey     string
	secretKey  string
	baseURL    string
	logger     *logger.Logger
	randomKey  func() string
}

// Option customizes the client, mostly for tests.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithRandomKey(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.randomKey = fn
		}
	}
}

// NewClient validates credentials and builds a client. Request deadlines
// come from the caller's context.
func NewClient(ctx context.Context, cfg config.IyzicoConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if logg == nil {
		logg = logger.Nop()
	}

	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		logger:     logg,
		randomKey:  defaultRandomKey,
	}
	for _, opt := range opts {
		opt(c)
	}

	logg.Info(ctx, "iyzico client initialized")
	return c, nil
}

// InitializeCheckoutForm creates a hosted checkout form session.
func (c *Client) InitializeCheckoutForm(ctx context.Context, req CheckoutFormRequest) (*CheckoutFormResponse, error) {
	c.log(ctx, "request", "initialize_checkout_form", map[string]any{
		"conversation_id": req.ConversationID,
		"basket_id":       req.BasketID,
		"price":           req.Price,
		"paid_price":      req.PaidPrice,
		"currency":        req.Currency,
		"basket_items":    len(req.BasketItems),
	})

	var resp CheckoutFormResponse
	if err := c.post(ctx, initializePath, req, &resp); err != nil {
		c.log(ctx, "error", "initialize_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}
	if err := resp.result.err(); err != nil {
		c.log(ctx, "error", "initialize_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_checkout_form", map[string]any{
		"conversation_id": resp.ConversationID,
		"token":           resp.Token,
	})
	return &resp, nil
}

// RetrieveCheckoutForm reads the payment outcome for a checkout form token.
func (c *Client) RetrieveCheckoutForm(ctx context.Context, req CheckoutFormDetailRequest) (*CheckoutFormDetail, error) {
	c.log(ctx, "request", "retrieve_checkout_form", map[string]any{"token": req.Token})

	var resp CheckoutFormDetail
	if err := c.post(ctx, detailPath, req, &resp); err != nil {
		c.log(ctx, "error", "retrieve_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}
	if err := resp.result.err(); err != nil {
		c.log(ctx, "error", "retrieve_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "retrieve_checkout_form", map[string]any{
		"conversation_id": resp.ConversationID,
		"payment_status":  resp.PaymentStatus,
	})
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode iyzico request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build iyzico request: %w", err)
	}
	randomKey := c.randomKey()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-iyzi-rnd", randomKey)
	req.Header.Set("Authorization", c.authorization(path, randomKey, payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read iyzico response")
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("iyzico returned http %d", resp.StatusCode))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode iyzico response (http %d)", resp.StatusCode))
	}
	return nil
}

// authorization builds the IYZWSv2 header: HMAC-SHA256 over
// randomKey + uri path + request body, keyed by the secret.
func (c *Client) authorization(path, randomKey string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(randomKey))
	mac.Write([]byte(path))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	auth := "apiKey:" + c.apiKey + "&randomKey:" + randomKey + "&signature:" + signature
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(auth))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("iyzico %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("iyzico %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "identity", "email", "phone", "gsm"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func defaultRandomKey() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.Itoa(rand.IntN(1_000_000_000))
}
