// Package weaviate is a minimal client for the Weaviate schema API,
// covering only the operations the repair flow needs.
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Common client errors.
var (
	// ErrUnavailable marks transport failures and timeouts; callers degrade
	// to an empty result instead of aborting.
	ErrUnavailable = errors.New("weaviate unavailable")
	// ErrNotFound marks a 404 for a single collection.
	ErrNotFound = errors.New("collection not found")
)

// ClientError wraps a failed schema API call with its operation and, when the
// server answered, the HTTP status.
type ClientError struct {
	Op     string
	Status int
	Err    error
}

func (e *ClientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weaviate: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("weaviate: %s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func newClientError(op string, status int, err error) error {
	return &ClientError{Op: op, Status: status, Err: err}
}

// Config holds the client settings.
type Config struct {
	// Endpoint is the base URL, e.g. http://weaviate:8080.
	Endpoint string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout bounds each request.
	Timeout time.Duration
}

// Client talks to the Weaviate schema API. Safe for concurrent use, though
// the repair flow is strictly sequential.
type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// New creates a schema API client.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return req, nil
}

// Ready checks the readiness endpoint.
func (c *Client) Ready(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/.well-known/ready", nil)
	if err != nil {
		return newClientError("ready", 0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return newClientError("ready", 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newClientError("ready", resp.StatusCode, ErrUnavailable)
	}
	return nil
}

type schemaResponse struct {
	Classes []map[string]any `json:"classes"`
}

// ListClasses fetches the full schema listing in server order.
func (c *Client) ListClasses(ctx context.Context) ([]Class, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/schema", nil)
	if err != nil {
		return nil, newClientError("list schema", 0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newClientError("list schema", 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newClientError("list schema", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newClientError("list schema", resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))))
	}

	var schema schemaResponse
	if err := json.Unmarshal(body, &schema); err != nil {
		return nil, newClientError("list schema", resp.StatusCode, fmt.Errorf("unmarshal response: %w", err))
	}

	classes := make([]Class, 0, len(schema.Classes))
	for _, raw := range schema.Classes {
		classes = append(classes, NewClass(raw))
	}
	return classes, nil
}

// GetClass fetches one collection's schema document.
func (c *Client) GetClass(ctx context.Context, name string) (Class, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/schema/"+url.PathEscape(name), nil)
	if err != nil {
		return Class{}, newClientError("get schema", 0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Class{}, newClientError("get schema", 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Class{}, newClientError("get schema", resp.StatusCode, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Class{}, newClientError("get schema", resp.StatusCode, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Class{}, newClientError("get schema", resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Class{}, newClientError("get schema", resp.StatusCode, fmt.Errorf("unmarshal response: %w", err))
	}
	return NewClass(raw), nil
}

// DeleteClass removes a collection. Weaviate answers 200 or 204 on success.
func (c *Client) DeleteClass(ctx context.Context, name string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/schema/"+url.PathEscape(name), nil)
	if err != nil {
		return newClientError("delete schema", 0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return newClientError("delete schema", 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return newClientError("delete schema", resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))))
	}
	return nil
}

// CreateClass creates a collection from a schema document.
func (c *Client) CreateClass(ctx context.Context, doc map[string]any) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/schema", doc)
	if err != nil {
		return newClientError("create schema", 0, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return newClientError("create schema", 0, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return newClientError("create schema", resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))))
	}
	return nil
}

type graphqlRequest struct {
	Query string `json:"query"`
}

// ObjectCount returns the approximate object count for a collection via the
// GraphQL Aggregate API. Best effort: any failure yields 0 so a broken count
// never blocks a listing.
func (c *Client) ObjectCount(ctx context.Context, name string) int64 {
	query := fmt.Sprintf("{ Aggregate { %s { meta { count } } } }", name)
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/graphql", graphqlRequest{Query: query})
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("object count failed", zap.String("collection", name), zap.Error(err))
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("object count failed", zap.String("collection", name), zap.Int("status", resp.StatusCode))
		return 0
	}

	var payload struct {
		Data struct {
			Aggregate map[string][]struct {
				Meta struct {
					Count int64 `json:"count"`
				} `json:"meta"`
			} `json:"Aggregate"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0
	}

	rows := payload.Data.Aggregate[name]
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Meta.Count
}
