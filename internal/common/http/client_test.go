package http

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/common/logger"
)

type stubCredentials struct {
	token       string
	err         error
	invalidated int32
}

func (s *stubCredentials) Token() (string, error) { return s.token, s.err }
func (s *stubCredentials) Invalidate()            { atomic.AddInt32(&s.invalidated, 1) }

func newTestClient(t *testing.T, url string, creds Credentials) *Client {
	return NewClient(Config{
		BaseURL:    url,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, creds, logger.NewTestLogger(t))
}

func TestSend_SetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		assert.Equal(t, "key-1", r.Header.Get(HeaderIdempotencyKey))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Taller X"}`, string(body))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &stubCredentials{token: "abc"})
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.DoJSON(context.Background(), http.MethodPut, "/draft",
		map[string]string{"name": "Taller X"}, &out, map[string]string{HeaderIdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestSend_RetriesIdempotentOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	body, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/services"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSend_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Send(context.Background(), Request{Method: http.MethodPut, Path: "/draft", Body: []byte(`{}`)})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestSend_NeverRetriesPost(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Send(context.Background(), Request{Method: http.MethodPost, Path: "/complete"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSend_NotFoundIsMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not Found","message":"Onboarding not started"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/status"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var apiErr *APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Onboarding not started", apiErr.Message)
}

func TestSend_UnauthorizedInvalidatesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	creds := &stubCredentials{token: "stale"}
	c := newTestClient(t, srv.URL, creds)
	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/status"})
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&creds.invalidated))
}

func TestSend_MissingTokenSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &stubCredentials{err: errors.NewSessionMissingError()})
	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/status"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSessionMissing))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDoJSON_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	var out map[string]interface{}
	err := c.DoJSON(context.Background(), http.MethodGet, "/x", nil, &out, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidResponse))
}
