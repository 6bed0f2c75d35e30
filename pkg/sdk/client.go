// Package sdk is a Go client for the fairgov HTTP API.
//
// Quick Start:
//
//	client := sdk.NewClient(sdk.Config{
//	    BaseURL: "http://localhost:8080",
//	    Actor:   "council-multisig",
//	})
//
//	p, err := client.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-1", RiskScore: 60})
//	var apiErr *sdk.APIError
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
//	    // illegal transition
//	}
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the service root, e.g. "http://localhost:8080" (required)
	BaseURL string

	// Actor is sent as X-Actor and recorded in the audit trail for config
	// changes.
	Actor string

	// Timeout per request (default 30s)
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// APIError is a non-2xx reply.
type APIError struct {
	Status    int
	Message   string `json:"error"`
	Kind      string `json:"kind"`
	Field     string `json:"field"`
	RequestID string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("fairgov: %d %s (%s): %s", e.Status, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("fairgov: %d %s: %s", e.Status, e.Kind, e.Message)
}

// Client talks to one fairgov service.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{config: cfg, httpClient: hc}
}

// do sends in as JSON (when non-nil) and decodes the reply into out (when
// non-nil). Every request carries a fresh X-Request-ID.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("fairgov-sdk: failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("fairgov-sdk: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.config.Actor != "" {
		req.Header.Set("X-Actor", c.config.Actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fairgov-sdk: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fairgov-sdk: failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("fairgov-sdk: failed to parse response: %w", err)
	}
	return nil
}

func pathID(format string, id interface{}) string {
	return fmt.Sprintf(format, url.PathEscape(fmt.Sprint(id)))
}
