// Package numbering wraps the external document numbering service. Numbers
// are opaque strings; the workflows accept pre-reserved numbers and never
// mint their own.
package numbering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Document types known to the numbering service.
const (
	TypePurchaseOrder = "purchase_order"
	TypeDeliveryNote  = "delivery_note"
	TypeReturnNote    = "return_note"
)

// Service reserves and releases document numbers.
type Service interface {
	Reserve(ctx context.Context, documentType string) (string, error)
	Release(ctx context.Context, number string) error
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a numbering client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

type reserveRequest struct {
	DocumentType string `json:"document_type"`
}

type reserveResponse struct {
	Number string `json:"number"`
}

type releaseRequest struct {
	Number string `json:"number"`
}

// Reserve asks the service for the next number of the given document type.
func (c *Client) Reserve(ctx context.Context, documentType string) (string, error) {
	body, err := json.Marshal(reserveRequest{DocumentType: documentType})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/numbers/reserve", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("numbering: reserve: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("numbering: reserve returned status %d", resp.StatusCode)
	}
	var decoded reserveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("numbering: decode reserve response: %w", err)
	}
	if decoded.Number == "" {
		return "", fmt.Errorf("numbering: service returned empty number")
	}
	return decoded.Number, nil
}

// Release returns a reserved number, typically when a draft is abandoned.
func (c *Client) Release(ctx context.Context, number string) error {
	body, err := json.Marshal(releaseRequest{Number: number})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/numbers/release", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("numbering: release: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("numbering: release returned status %d", resp.StatusCode)
	}
	return nil
}
