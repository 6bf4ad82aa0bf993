// Package backend provides the REST client for the b3notifier backend.
// It attaches bearer credentials per request and normalizes every response
// into one canonical shape before it reaches a caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// GenericErrorMessage is shown when the backend rejects a request without a message.
const GenericErrorMessage = "unexpected error, please try again"

// PublicRoutes never carry credentials. Matching is by substring of the request path.
var PublicRoutes = []string{
	"/user/send-otp/",
	"/user/verify-otp/",
	"/user/register/",
	"/token/",
}

// IsPublicRoute reports whether path matches the public allow-list.
func IsPublicRoute(path string) bool {
	for _, route := range PublicRoutes {
		if strings.Contains(path, route) {
			return true
		}
	}
	return false
}

// Compile-time interface check
var _ interfaces.BackendClient = (*Client)(nil)

// Client implements interfaces.BackendClient
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     interfaces.TokenSource
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit; zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where access tokens are read from on each request
func WithTokenSource(tokens interfaces.TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient creates a new backend client rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a structured rejection from the backend. Message is the
// backend-provided text when one was present, else GenericErrorMessage.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// NetworkError wraps failures that happened before a response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// response is the canonical result of a request: the payload with any
// {"message", "data"} envelope removed, plus the envelope message.
type response struct {
	StatusCode int
	Payload    json.RawMessage
	Message    string
}

// authorize attaches the stored access token unless path is public. The
// store is consulted on every call so a login is honored by the next request.
func (c *Client) authorize(ctx context.Context, req *http.Request, path string) error {
	req.Header.Del("Authorization")
	if IsPublicRoute(path) || c.tokens == nil {
		return nil
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// do performs a rate-limited request with an optional JSON body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", common.ResolveRequestID(ctx))

	if err := c.authorize(ctx, req, path); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Bool("auth", req.Header.Get("Authorization") != "").
		Msg("Backend API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Endpoint:   path,
		}
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("Backend API rejected request")
		return nil, apiErr
	}

	payload, message := unwrapEnvelope(raw)
	return &response{StatusCode: resp.StatusCode, Payload: payload, Message: message}, nil
}

// decode unmarshals the canonical payload into result.
func (r *response) decode(path string, result interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("empty response from %s", path)
	}
	if err := json.Unmarshal(r.Payload, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// unwrapEnvelope strips a {"message": ..., "data": ...} or {"results": [...]}
// wrapper. Any other body is returned as the payload unchanged; a bare
// {"message": ...} yields an empty payload.
func unwrapEnvelope(body []byte) (json.RawMessage, string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed, ""
	}

	var message string
	if m, ok := obj["message"]; ok {
		_ = json.Unmarshal(m, &message)
	}

	if data, ok := obj["data"]; ok {
		return data, message
	}
	if results, ok := obj["results"]; ok && len(bytes.TrimSpace(results)) > 0 && bytes.TrimSpace(results)[0] == '[' {
		return results, message
	}
	if message != "" && len(obj) == 1 {
		return nil, message
	}
	return trimmed, message
}

// errorMessage extracts a human message from an error body: "error",
// "detail" or "message" keys first, then the first field error.
func errorMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return GenericErrorMessage
	}

	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := obj[key]; ok {
			if s := firstString(v); s != "" {
				return s
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(obj[k]); s != "" {
			if k == "non_field_errors" {
				return s
			}
			return k + ": " + s
		}
	}
	return GenericErrorMessage
}

// firstString returns v as a string, or the first string of an array.
func firstString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// ClearAuthorization closes pooled connections so nothing opened under the
// previous identity is reused. Credentials themselves live in the token store.
func (c *Client) ClearAuthorization() {
	c.httpClient.CloseIdleConnections()
}
