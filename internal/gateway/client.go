package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"surplus-market/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	defaultTimeout = 5 * time.Second
)

var (
	// ErrUnavailable marks a transient gateway failure: timeout, transport error or 5xx.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotFound means the gateway does not know the payment.
	ErrPaymentNotFound = errors.New("payment not found at gateway")
)

// APIError is a non-retryable error response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.StatusCode, e.Message)
}

// Payment is the authoritative state of a gateway payment.
type Payment struct {
	ID           string
	Status       string
	StatusDetail string
	OrderID      string
	Amount       decimal.Decimal
}

// Payer identifies who pays for an order.
type Payer struct {
	Email string
	Name  string
}

// PaymentRequest describes the charge for one order.
type PaymentRequest struct {
	OrderID     uuid.UUID
	Method      model.PaymentMethod
	Amount      decimal.Decimal
	UnitPrice   decimal.Decimal
	Quantity    int
	Description string
	Payer       Payer
}

// Checkout is what the consumer needs to complete a payment.
type Checkout struct {
	PaymentID    string
	PreferenceID string
	Status       string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	CheckoutURL  string
}

// Client is the payment gateway API.
type Client interface {
	// GetPayment fetches the current status of a payment.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)

	// CreatePayment starts a PIX payment or a card checkout for an order.
	CreatePayment(ctx context.Context, req PaymentRequest) (*Checkout, error)

	// RefundPayment fully refunds a payment.
	RefundPayment(ctx context.Context, paymentID string) error
}

// ClientConfig configures the Mercado Pago client.
type ClientConfig struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	Timeout         time.Duration
	MaxRetries      int
	RetryInterval   time.Duration
	HTTPClient      *http.Client
}

// mercadoPagoClient implements Client over the Mercado Pago REST API.
type mercadoPagoClient struct {
	cfg    ClientConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a Mercado Pago client. Each attempt is bounded by cfg.Timeout
// and transient failures are retried up to cfg.MaxRetries times.
func NewClient(cfg ClientConfig, logger zerolog.Logger) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &mercadoPagoClient{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With().Str("component", "mercadopago-client").Logger(),
	}
}

func (c *mercadoPagoClient) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.RetryInterval > 0 {
		b.InitialInterval = c.cfg.RetryInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

// do sends one request with retries and returns the response body.
func (c *mercadoPagoClient) do(ctx context.Context, method, path string, body any, idempotencyKey string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode gateway request: %w", err)
		}
	}

	var result []byte
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build gateway request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrPaymentNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(&APIError{
				StatusCode: resp.StatusCode,
				Message:    gjson.GetBytes(data, "message").String(),
			})
		}

		result = data
		return nil
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("retry_in", next).
			Msg("gateway request failed, retrying")
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctxErr)
		}
		return nil, err
	}
	return result, nil
}

// GetPayment fetches a payment. The order reference is external_reference, or
// metadata.order_id for payments created directly.
func (c *mercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	path, err := paymentPath(paymentID, "")
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	payment := &Payment{
		ID:           parsed.Get("id").String(),
		Status:       parsed.Get("status").String(),
		StatusDetail: parsed.Get("status_detail").String(),
		OrderID:      parsed.Get("external_reference").String(),
	}
	if payment.OrderID == "" {
		payment.OrderID = parsed.Get("metadata.order_id").String()
	}
	if amount := parsed.Get("transaction_amount"); amount.Exists() {
		payment.Amount, _ = decimal.NewFromString(amount.Raw)
	}
	if payment.ID == "" {
		payment.ID = paymentID
	}
	return payment, nil
}

// CreatePayment creates a PIX payment, or a checkout preference for card payments.
func (c *mercadoPagoClient) CreatePayment(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	if req.Method == model.PaymentMethodCreditCard {
		return c.createPreference(ctx, req)
	}
	return c.createPix(ctx, req)
}

func (c *mercadoPagoClient) createPix(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	firstName, lastName := splitName(req.Payer.Name)
	body := map[string]any{
		"transaction_amount": json.Number(req.Amount.StringFixed(2)),
		"description":        req.Description,
		"payment_method_id":  "pix",
		"external_reference": req.OrderID.String(),
		"payer": map[string]any{
			"email":      req.Payer.Email,
			"first_name": firstName,
			"last_name":  lastName,
		},
		"metadata": map[string]any{
			"order_id": req.OrderID.String(),
		},
	}
	if c.cfg.NotificationURL != "" {
		body["notification_url"] = c.cfg.NotificationURL
	}

	data, err := c.do(ctx, http.MethodPost, "/v1/payments", body, req.OrderID.String())
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	txData := parsed.Get("point_of_interaction.transaction_data")
	return &Checkout{
		PaymentID:    parsed.Get("id").String(),
		Status:       parsed.Get("status").String(),
		QRCode:       txData.Get("qr_code").String(),
		QRCodeBase64: txData.Get("qr_code_base64").String(),
		TicketURL:    txData.Get("ticket_url").String(),
	}, nil
}

func (c *mercadoPagoClient) createPreference(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	body := map[string]any{
		"items": []map[string]any{{
			"id":          req.OrderID.String(),
			"title":       req.Description,
			"quantity":    req.Quantity,
			"unit_price":  json.Number(req.UnitPrice.StringFixed(2)),
			"currency_id": "BRL",
		}},
		"payer": map[string]any{
			"email": req.Payer.Email,
		},
		"external_reference": req.OrderID.String(),
	}
	if c.cfg.NotificationURL != "" {
		body["notification_url"] = c.cfg.NotificationURL
	}

	data, err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, req.OrderID.String())
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(data)
	return &Checkout{
		PreferenceID: parsed.Get("id").String(),
		Status:       StatusPending,
		CheckoutURL:  parsed.Get("init_point").String(),
	}, nil
}

// RefundPayment requests a full refund.
func (c *mercadoPagoClient) RefundPayment(ctx context.Context, paymentID string) error {
	path, err := paymentPath(paymentID, "/refunds")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, path, map[string]any{}, "refund-"+paymentID)
	return err
}

// paymentPath builds a /v1/payments resource path. IDs that are not numeric
// never reach the gateway.
func paymentPath(paymentID, suffix string) (string, error) {
	if !ValidPaymentID(paymentID) {
		return "", fmt.Errorf("%w: malformed id %q", ErrPaymentNotFound, paymentID)
	}
	return "/v1/payments/" + paymentID + suffix, nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], fields[0]
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
