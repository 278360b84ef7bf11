package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/observability"
)

// Client talks to the storefront webservice API over HTTP. Every call is
// bounded by the configured timeout; no operation blocks indefinitely.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// ClientConfig groups the client settings read from the environment.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient constructs a storefront channel client.
func NewClient(cfg ClientConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

type stockIncreasePayload struct {
	ProductRef string `json:"product_ref"`
	Qty        int    `json:"qty"`
}

type orderStatusPayload struct {
	Status string `json:"status"`
}

type orderNotePayload struct {
	Text            string `json:"text"`
	CustomerVisible bool   `json:"customer_visible"`
}

// IncreaseStock raises storefront stock for productRef by qty.
func (c *Client) IncreaseStock(ctx context.Context, productRef string, qty int) error {
	err := c.post(ctx, "/stock/increase", stockIncreasePayload{ProductRef: productRef, Qty: qty})
	c.observe(OpIncreaseStock, err)
	return err
}

// SetOrderStatus changes the storefront order status.
func (c *Client) SetOrderStatus(ctx context.Context, orderRef string, status string) error {
	err := c.post(ctx, fmt.Sprintf("/orders/%s/status", url.PathEscape(orderRef)), orderStatusPayload{Status: status})
	c.observe(OpSetOrderStatus, err)
	return err
}

// AddOrderNote attaches an annotation to the storefront order.
func (c *Client) AddOrderNote(ctx context.Context, orderRef string, text string, customerVisible bool) error {
	err := c.post(ctx, fmt.Sprintf("/orders/%s/notes", url.PathEscape(orderRef)), orderNotePayload{Text: text, CustomerVisible: customerVisible})
	c.observe(OpAddOrderNote, err)
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("integration: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("integration: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("integration: call %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("integration: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) observe(op string, err error) {
	c.metrics.RecordChannelCall(op, err == nil)
	if err != nil && c.logger != nil {
		c.logger.Warn("storefront call failed", slog.String("op", op), slog.Any("error", err))
	}
}
