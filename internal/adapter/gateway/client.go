package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

const (
	defaultTimeout = 10 * time.Second
	defaultBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Client exposes the payment gateway operations used by checkout and reconciliation.
type Client interface {
	CreatePreference(ctx context.Context, order *model.Order, items []model.PaymentItem) (*model.PaymentIntent, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.PaymentEvent, error)
}

// Options configures HTTPClient.
type Options struct {
	BaseURL     string
	AccessToken string
	FrontendURL string
	BackendURL  string
	Currency    string
	Timeout     time.Duration
	MaxRetries  int
}

// HTTPClient implements Client against the Mercado Pago REST API.
type HTTPClient struct {
	baseURL     *url.URL
	accessToken string
	frontendURL string
	backendURL  string
	currency    string
	maxRetries  int
	backoff     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

type preferenceItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	BackURLs          backURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// NewHTTPClient creates gateway client with bounded per-attempt timeout.
func NewHTTPClient(opts Options, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("gateway access token is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &HTTPClient{
		baseURL:     parsed,
		accessToken: opts.AccessToken,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		backendURL:  strings.TrimRight(opts.BackendURL, "/"),
		currency:    opts.Currency,
		maxRetries:  retries,
		backoff:     defaultBackoff,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CreatePreference opens a checkout session for the order and returns the redirect URL.
func (c *HTTPClient) CreatePreference(ctx context.Context, order *model.Order, items []model.PaymentItem) (*model.PaymentIntent, error) {
	const op = "create preference"
	if len(items) == 0 {
		items = itemsFromOrder(order)
	}

	payload := preferenceRequest{
		Items: make([]preferenceItem, 0, len(items)),
		BackURLs: backURLs{
			Success: c.frontendURL + "/checkout/success",
			Failure: c.frontendURL + "/checkout",
			Pending: c.frontendURL + "/checkout",
		},
		AutoReturn:        "approved",
		ExternalReference: order.ExternalReference(),
		NotificationURL:   c.backendURL + "/payments/webhook",
	}
	for _, item := range items {
		payload.Items = append(payload.Items, preferenceItem{
			ID:         strconv.FormatInt(item.ProductID, 10),
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  json.Number(item.UnitPrice.StringFixed(model.MoneyPlaces)),
			CurrencyID: c.currency,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domainErrors.GatewayError{Op: op, Err: err}
	}

	headers := http.Header{}
	headers.Set("X-Idempotency-Key", "preference-"+order.ExternalReference())
	status, respBody, err := c.send(ctx, op, http.MethodPost, "/checkout/preferences", body, headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.logger.Error("preference request rejected", slog.Int("status", status), slog.String("body", string(respBody)))
		return nil, &domainErrors.GatewayError{Op: op, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}

	var data preferenceResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, &domainErrors.GatewayError{Op: op, StatusCode: status, Err: err}
	}
	redirect := data.InitPoint
	if redirect == "" {
		redirect = data.SandboxInitPoint
	}
	if redirect == "" {
		return nil, &domainErrors.GatewayError{Op: op, StatusCode: status, Err: errors.New("missing init point")}
	}
	return &model.PaymentIntent{OrderID: order.ID, PreferenceID: data.ID, RedirectURL: redirect}, nil
}

// FetchPayment confirms a notified payment and correlates it to an order.
func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*model.PaymentEvent, error) {
	const op = "fetch payment"
	status, respBody, err := c.send(ctx, op, http.MethodGet, path.Join("/v1/payments", url.PathEscape(paymentID)), nil, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("payment %s unknown to gateway: %w", paymentID, domainErrors.ErrMalformedEvent)
	default:
		c.logger.Error("payment lookup rejected", slog.Int("status", status), slog.String("body", string(respBody)))
		return nil, &domainErrors.GatewayError{Op: op, StatusCode: status, Err: errors.New(http.StatusText(status))}
	}

	var data paymentResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("decode payment %s: %w", paymentID, domainErrors.ErrMalformedEvent)
	}
	if data.Status == "" {
		return nil, fmt.Errorf("payment %s has no status: %w", paymentID, domainErrors.ErrMalformedEvent)
	}
	gatewayID := data.ID.String()
	if gatewayID == "" {
		gatewayID = paymentID
	}
	return &model.PaymentEvent{
		ExternalReference: data.ExternalReference,
		Status:            model.GatewayStatus(data.Status),
		GatewayPaymentID:  gatewayID,
	}, nil
}

// send performs the request, retrying transport failures, 5xx and 429 responses.
func (c *HTTPClient) send(ctx context.Context, op, method, route string, body []byte, headers http.Header) (int, []byte, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, route)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return 0, nil, &domainErrors.GatewayError{Op: op, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for key, values := range headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		wait := c.backoffFor(attempt)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &domainErrors.GatewayError{Op: op, Err: err}
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = &domainErrors.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: readErr}
			case resp.StatusCode == http.StatusTooManyRequests:
				wait = parseRetryAfter(resp.Header.Get("Retry-After"), wait)
				lastErr = &domainErrors.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: TooManyRequestsError{RetryAfter: wait}}
			case resp.StatusCode >= http.StatusInternalServerError:
				lastErr = &domainErrors.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
			default:
				return resp.StatusCode, respBody, nil
			}
		}

		if attempt == c.maxRetries {
			break
		}
		c.logger.Warn("gateway call failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.String("error", lastErr.Error()))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, nil, &domainErrors.GatewayError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return 0, nil, lastErr
}

func (c *HTTPClient) backoffFor(attempt int) time.Duration {
	wait := c.backoff << attempt
	if wait <= 0 || wait > maxBackoff {
		return maxBackoff
	}
	return wait
}

// TooManyRequestsError represents rate limiting signal from the gateway.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

func parseRetryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func itemsFromOrder(order *model.Order) []model.PaymentItem {
	items := make([]model.PaymentItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, model.PaymentItem{
			ProductID: line.ProductID,
			Title:     fmt.Sprintf("Product #%d", line.ProductID),
			Quantity:  line.Quantity,
			UnitPrice: line.PriceAtPurchase,
		})
	}
	return items
}
