package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskManager/internal/access"
	"taskManager/internal/auth"
	"taskManager/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory map[string]access.Caller

func (d stubDirectory) Authenticate(_ context.Context, token string) (access.Caller, error) {
	caller, ok := d[token]
	if !ok {
		return access.Caller{}, auth.ErrInvalidToken
	}
	return caller, nil
}

// echoCaller отвечает идентификатором пользователя из контекста
func echoCaller(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(caller.ID))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
	})

	t.Run("header with spaces is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "bad id")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.NotEqual(t, "bad id", seen)
		assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rr.Header().Get("X-Request-ID"))
	})
}

func TestLogging_PassesStatusThrough(t *testing.T) {
	handler := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestAuthenticate(t *testing.T) {
	dir := stubDirectory{"good": {ID: "user-a"}}
	handler := middleware.Authenticate(dir)(http.HandlerFunc(echoCaller))

	tests := []struct {
		name     string
		header   string
		status   int
		expected string
	}{
		{name: "valid token", header: "Bearer good", status: http.StatusOK, expected: "user-a"},
		{name: "scheme case insensitive", header: "bearer good", status: http.StatusOK, expected: "user-a"},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.expected, rr.Body.String())
				return
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := middleware.RequireAdmin(http.HandlerFunc(echoCaller))

	tests := []struct {
		name   string
		ctx    func(context.Context) context.Context
		status int
	}{
		{
			name:   "no caller",
			ctx:    func(ctx context.Context) context.Context { return ctx },
			status: http.StatusUnauthorized,
		},
		{
			name: "regular user",
			ctx: func(ctx context.Context) context.Context {
				return auth.WithCaller(ctx, access.Caller{ID: "user-a"})
			},
			status: http.StatusForbidden,
		},
		{
			name: "admin",
			ctx: func(ctx context.Context) context.Context {
				return auth.WithCaller(ctx, access.Caller{ID: "root", IsAdmin: true})
			},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/tasks/user-counts", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	handler := middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := call("10.0.0.1:1000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := call("10.0.0.1:1001")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	// лимит считается отдельно для каждого адреса
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)
}
