// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	defaultRetryDelay = 100 * time.Millisecond
	maxErrorBody      = 64 * 1024
)

// Credentials supplies the bearer token for every call. Invalidate is called once the
// backend rejects the token with 401.
type Credentials interface {
	Token() (string, error)
	Invalidate()
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	ServiceName string
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	credentials Credentials
	maxRetries  int
	retryDelay  time.Duration
	service     string
	logger      logger.Logger
}

// Request describes one backend call. Body is sent as-is so it can be replayed on retry.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// APIError is a non-2xx backend response. It unwraps to the matching StandardError.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string

	std *errors.StandardError
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.std
}

// NewClient builds a client. credentials may be nil for anonymous endpoints such as login.
func NewClient(cfg Config, credentials Credentials, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "workshop-backend"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		credentials: credentials,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		service:     cfg.ServiceName,
		logger:      logger.ForComponent(log, "http-client"),
	}
}

// WithCredentials returns a copy of the client using other credentials.
func (c *Client) WithCredentials(credentials Credentials) *Client {
	clone := *c
	clone.credentials = credentials
	return &clone
}

// Send performs req and returns the response body of a 2xx answer. GET, PUT and DELETE
// are retried on transport errors and 5xx answers; POST is sent exactly once.
func (c *Client) Send(ctx context.Context, req Request) ([]byte, error) {
	attempts := 1
	if isIdempotent(req.Method) {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay * time.Duration(1<<(attempt-2))
			c.logger.Warn("retrying backend call", map[string]interface{}{
				"method":      req.Method,
				"path":        req.Path,
				"attempt":     attempt,
				"maxAttempts": attempts,
				"nextRetryIn": delay.String(),
				"error":       lastErr,
			})
			select {
			case <-ctx.Done():
				return nil, errors.NewTimeoutError(c.service, ctx.Err())
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.do(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

// DoJSON marshals in (when non-nil), sends it, and decodes the answer into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out interface{}, headers map[string]string) error {
	req := Request{Method: method, Path: path, Headers: headers}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.NewInvalidRequestError(fmt.Sprintf("marshal %s body: %v", path, err))
		}
		req.Body = payload
		req.ContentType = "application/json"
	}

	body, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewInvalidResponseError(c.service, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, bool, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, false, errors.NewInvalidRequestError(err.Error())
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.credentials != nil {
		token, err := c.credentials.Token()
		if err != nil {
			return nil, false, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, errors.NewTimeoutError(c.service, ctx.Err())
		}
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, true, errors.NewTimeoutError(c.service, err)
		}
		return nil, true, errors.NewExternalServiceError(c.service, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call", map[string]interface{}{
		"method":     req.Method,
		"path":       req.Path,
		"status":     resp.StatusCode,
		"requestId":  requestID,
		"durationMs": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, errors.NewExternalServiceError(c.service, err)
		}
		return data, false, nil
	}

	apiErr := c.toAPIError(req, resp)
	if resp.StatusCode == http.StatusUnauthorized && c.credentials != nil {
		c.logger.Warn("backend rejected credentials, tearing down session", map[string]interface{}{
			"path": req.Path,
		})
		c.credentials.Invalidate()
	}
	return nil, resp.StatusCode >= 500, apiErr
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) toAPIError(req Request, resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	message := ""
	if json.Unmarshal(raw, &eb) == nil {
		message = eb.Message
		if message == "" {
			message = eb.Error
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Path:       req.Path,
		Message:    message,
		std:        errors.FromHTTPStatus(c.service, resp.StatusCode, message),
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
