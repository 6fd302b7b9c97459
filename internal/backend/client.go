package backend

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

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("backend: not found")
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	ErrUnavailable  = errors.New("backend: unavailable")
)

// maxResponseBytes caps how much of a backend response body is read.
const maxResponseBytes = 4 << 20

// APIError is a non-2xx response from the backend, carrying its error
// envelope when one was parseable. Unwraps to the matching sentinel.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// Client talks to the external REST backend. It forwards the caller's bearer
// token and tenant untouched; the backend owns all verification.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Request describes one backend call.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     any
	Token    string
	TenantID string
}

// Do executes the request and returns the raw JSON response body.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if r.TenantID != "" {
		req.Header.Set("X-Tenant-ID", r.TenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

// GetJSON issues a GET and returns the raw response.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, token, tenantID string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Token: token, TenantID: tenantID})
}

// PostJSON issues a POST with a JSON body and returns the raw response.
func (c *Client) PostJSON(ctx context.Context, path string, body any, token, tenantID string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Token: token, TenantID: tenantID})
}

// PutJSON issues a PUT with a JSON body and returns the raw response.
func (c *Client) PutJSON(ctx context.Context, path string, body any, token, tenantID string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Token: token, TenantID: tenantID})
}

// DeleteJSON issues a DELETE and returns the raw response.
func (c *Client) DeleteJSON(ctx context.Context, path string, token, tenantID string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Token: token, TenantID: tenantID})
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
