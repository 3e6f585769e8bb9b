// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Configuration constants for the completion API.
const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a non-streamed body is read.
	MaxResponseSize = 10 * 1024 * 1024

	// maxLineSize caps a single stream line.
	maxLineSize = 1024 * 1024

	userAgent = "orchat/0.1"
)

var (
	// Shared HTTP client with connection pooling for non-streaming requests.
	// Deadlines come from the request context.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	// sharedStreamingClient has no timeout at all; streams are cancelled
	// through their context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates an invalid or expired API key (HTTP 401).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInsufficientCredits indicates the account cannot pay (HTTP 402).
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrModelNotFound indicates the model id is unknown (HTTP 404).
	ErrModelNotFound = errors.New("model not found")

	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrNoChoices indicates a successful response without any choice.
	ErrNoChoices = errors.New("response contained no choices")

	// ErrTooManyDecodeFailures ends a stream whose consecutive undecodable
	// lines reached the configured cap.
	ErrTooManyDecodeFailures = errors.New("too many undecodable stream lines")
)

// RequestFailed is the error returned by every failed Complete or Stream.
type RequestFailed struct {
	Model string
	Err   error
}

func (e *RequestFailed) Error() string {
	return fmt.Sprintf("request failed for model %q: %v", e.Model, e.Err)
}

func (e *RequestFailed) Unwrap() error {
	return e.Err
}

// APIError is an error reported by the API itself.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// DecodeError describes one stream line that could not be decoded.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	line := e.Line
	if len(line) > 80 {
		line = line[:80] + "..."
	}
	return fmt.Sprintf("undecodable stream line %q: %v", line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is one conversation turn as sent to the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reasoning controls provider-side reasoning tokens.
type Reasoning struct {
	Effort    string `json:"effort,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Exclude   bool   `json:"exclude,omitempty"`
}

// Request is the chat completions request body.
type Request struct {
	Model               string     `json:"model"`
	Messages            []Message  `json:"messages"`
	Temperature         float64    `json:"temperature"`
	Stream              bool       `json:"stream"`
	MaxTokens           int        `json:"max_tokens,omitempty"`
	MaxCompletionTokens int        `json:"max_completion_tokens,omitempty"`
	Reasoning           *Reasoning `json:"reasoning,omitempty"`
}

// ChoiceMessage is the message inside a Choice.
type ChoiceMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Choice is one completion in a non-streamed response.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// Usage reports token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a non-streamed chat completion.
type Response struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []Choice        `json:"choices"`
	Usage   Usage           `json:"usage"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Content returns the first choice's content, or "" if there is none.
func (r *Response) Content() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// errorBody is the "error" object in API responses. Code may be a number or
// a string depending on the upstream provider.
type errorBody struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues chat completion requests. A Client is immutable once built;
// the With* methods return modified copies, so one Client may be shared by
// concurrent candidate requests.
type Client struct {
	apiKey            string
	baseURL           string
	siteURL           string
	siteName          string
	timeout           time.Duration
	maxDecodeFailures int
	httpClient        *http.Client
	streamClient      *http.Client
	logger            zerolog.Logger
}

// NewClient returns a client for the OpenRouter API using apiKey.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		logger:       zerolog.Nop(),
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// WithTimeout bounds non-streaming requests. Zero disables the bound.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.timeout = timeout
	return &cp
}

// WithSite sets the HTTP-Referer and X-Title attribution headers.
func (c *Client) WithSite(siteURL, siteName string) *Client {
	cp := *c
	cp.siteURL = siteURL
	cp.siteName = siteName
	return &cp
}

// WithHTTPClient replaces both the streaming and non-streaming HTTP clients.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	cp.streamClient = hc
	return &cp
}

// WithMaxDecodeFailures fails streams after n consecutive undecodable
// lines. Zero, the default, never fails a stream for that reason.
func (c *Client) WithMaxDecodeFailures(n int) *Client {
	cp := *c
	cp.maxDecodeFailures = n
	return &cp
}

// WithLogger sets the logger used for request diagnostics.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	cp := *c
	cp.logger = logger
	return &cp
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// setHeaders sets the headers every request carries.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// newRequest builds a POST to the chat completions endpoint.
func (c *Client) newRequest(ctx context.Context, body Request) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	return req, nil
}

// =============================================================================
// NON-STREAMING
// =============================================================================

// Complete sends req with streaming disabled and returns the full response.
// A response carrying an "error" object is a failure even with HTTP 200.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, &RequestFailed{Model: req.Model, Err: err}
	}
	return resp, nil
}

func (c *Client) complete(ctx context.Context, body Request) (*Response, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	body.Stream = false

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", body.Model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("completion response")

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, data)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiErr := parseAPIError(out.Error, resp.StatusCode); apiErr != nil {
		return nil, mapStatus(apiErr)
	}
	if len(out.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &out, nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// handleErrorResponse converts a non-200 response to an error.
func handleErrorResponse(status int, body []byte) error {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if apiErr := parseAPIError(envelope.Error, status); apiErr != nil {
			apiErr.Status = status
			return mapStatus(apiErr)
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return mapStatus(&APIError{Message: msg, Status: status})
}

// parseAPIError decodes an "error" member, which is either an object with
// code and message or a bare string. It returns nil for absent or null.
func parseAPIError(raw json.RawMessage, status int) *APIError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &APIError{Message: msg, Status: status}
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return &APIError{Message: string(raw), Status: status}
	}
	apiErr := &APIError{
		Code:    strings.Trim(string(body.Code), `"`),
		Message: body.Message,
		Status:  status,
	}
	if apiErr.Code == "null" {
		apiErr.Code = ""
	}
	// Errors delivered in a 200 body carry the real status as a numeric code
	if status == http.StatusOK {
		var n int
		if err := json.Unmarshal(body.Code, &n); err == nil && n >= 400 {
			apiErr.Status = n
		}
	}
	return apiErr
}

// mapStatus wraps well-known statuses in their sentinel errors.
func mapStatus(apiErr *APIError) error {
	var sentinel error
	switch apiErr.Status {
	case http.StatusUnauthorized:
		sentinel = ErrAuthFailed
	case http.StatusPaymentRequired:
		sentinel = ErrInsufficientCredits
	case http.StatusNotFound:
		sentinel = ErrModelNotFound
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		return apiErr
	}
	return fmt.Errorf("%w: %w", sentinel, apiErr)
}

// =============================================================================
// MODELS
// =============================================================================

// ListModels fetches the raw model list from GET {base}/models.
func (c *Client) ListModels(ctx context.Context) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	if !c.IsConfigured() {
		// The model list is public
		req.Header.Del("Authorization")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, data)
	}
	return data, nil
}
