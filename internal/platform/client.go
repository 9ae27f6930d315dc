// Package platform is the HTTP adapter for the loot-case platform API. It
// implements the collaborator contracts the orchestrator consumes and maps
// the platform's error payloads onto the typed error taxonomy.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/12008yz/chibox-reveal/internal/models"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Transport: transport, Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code          string           `json:"code"`
	Message       string           `json:"message"`
	Required      *decimal.Decimal `json:"required,omitempty"`
	Available     *decimal.Decimal `json:"available,omitempty"`
	NextAvailable string           `json:"next_available_time,omitempty"`
}

func (c *Client) FetchCaseItems(ctx context.Context, caseID string) ([]models.CaseItem, error) {
	var data struct {
		Items []models.CaseItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/cases/%s/items", caseID), nil, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

func (c *Client) FetchCaseStatus(ctx context.Context, caseID string) (*models.CaseStatus, error) {
	var status models.CaseStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/cases/%s/status", caseID), nil, &status); err != nil {
		return nil, err
	}
	status.CaseID = caseID
	return &status, nil
}

func (c *Client) PurchaseCase(ctx context.Context, caseID, paymentMethod string) (*models.PurchaseResult, error) {
	payload := map[string]string{"payment_method": paymentMethod}
	var data struct {
		PaymentURL     string `json:"payment_url"`
		InventoryCases []struct {
			ID string `json:"id"`
		} `json:"inventory_cases"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/cases/%s/purchase", caseID), payload, &data); err != nil {
		return nil, err
	}

	result := &models.PurchaseResult{PaymentURL: data.PaymentURL}
	if len(data.InventoryCases) > 0 {
		result.InventoryCaseID = data.InventoryCases[0].ID
	}
	return result, nil
}

func (c *Client) OpenCase(ctx context.Context, ref models.OpenRef) (*models.CaseItem, error) {
	if ref.IsZero() {
		return nil, &models.PlatformError{Code: "bad_request", Message: "nothing to open"}
	}
	var data struct {
		Item models.CaseItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cases/open", ref, &data); err != nil {
		return nil, err
	}
	return &data.Item, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, result interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &models.PlatformError{Code: "unreachable", Message: fmt.Sprintf("platform unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.PlatformError{Code: "read_failed", Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &models.PlatformError{
			Code:    "bad_response",
			Message: fmt.Sprintf("unexpected platform response (status %d)", resp.StatusCode),
		}
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return classifyError(env.Error, resp.StatusCode)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return &models.PlatformError{Code: "bad_response", Message: fmt.Sprintf("failed to decode payload: %v", err)}
		}
	}
	return nil
}

// classifyError maps platform error payloads onto the typed taxonomy the
// orchestrator branches on.
func classifyError(apiErr *apiError, status int) error {
	if apiErr == nil {
		return &models.PlatformError{
			Code:    "http_error",
			Message: fmt.Sprintf("platform request failed with status %d", status),
		}
	}

	switch apiErr.Code {
	case "insufficient_funds":
		e := &models.InsufficientFundsError{}
		if apiErr.Required != nil {
			e.Required = *apiErr.Required
		}
		if apiErr.Available != nil {
			e.Available = *apiErr.Available
		}
		return e
	case "already_claimed", "cooldown_active":
		return &models.AlreadyClaimedError{NextAvailable: apiErr.NextAvailable}
	default:
		return &models.PlatformError{Code: apiErr.Code, Message: apiErr.Message}
	}
}
