package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskManager/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 64
)

// RequestID берёт id из заголовка клиента, если он похож на id, иначе генерирует новый
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID)))
	})
}

// validRequestID: id попадает в логи и заголовки ответа, поэтому только печатные ASCII без пробелов
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
		sr.ResponseWriter.WriteHeader(code)
	}
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

// Unwrap нужен http.ResponseController
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Logging пишет начало и конец запроса, уровень зависит от статуса ответа
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := GetRequestID(r.Context())

		logger.Debug("HTTP_IN: Начало запроса",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", getIp(r)))

		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)
		if sr.status == 0 {
			sr.status = http.StatusOK
		}

		level := zap.InfoLevel
		switch {
		case sr.status >= http.StatusInternalServerError:
			level = zap.ErrorLevel
		case sr.status >= http.StatusBadRequest:
			level = zap.WarnLevel
		}

		logger.Log(level, "HTTP_OUT: Завершение запроса",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("route", routePattern(r)),
			zap.Int("status", sr.status),
			zap.Int("bytes_written", sr.size),
			zap.String("client_ip", getIp(r)),
			zap.Duration("ms", time.Since(start)))
	})
}

// routePattern - шаблон маршрута chi без id задач, для неизвестных маршрутов путь
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// rateLimiter - фиксированное окно на каждый ip
type rateLimiter struct {
	mtx     sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
	sweepAt time.Time
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

type decision struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

func newRateLimiter(limit int, size time.Duration, now time.Time) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  size,
		clients: make(map[string]*clientWindow),
		sweepAt: now.Add(size),
	}
}

func (rl *rateLimiter) allow(ip string, now time.Time) decision {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	// истёкшие окна удаляются раз в окно, чтобы map не росла бесконечно
	if now.After(rl.sweepAt) {
		for key, c := range rl.clients {
			if now.After(c.resetAt) {
				delete(rl.clients, key)
			}
		}
		rl.sweepAt = now.Add(rl.window)
	}

	c, ok := rl.clients[ip]
	if !ok || now.After(c.resetAt) {
		c = &clientWindow{resetAt: now.Add(rl.window)}
		rl.clients[ip] = c
	}
	if c.count >= rl.limit {
		return decision{allowed: false, resetAt: c.resetAt}
	}

	c.count++
	return decision{allowed: true, remaining: rl.limit - c.count, resetAt: c.resetAt}
}

func (rl *rateLimiter) size() int {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	return len(rl.clients)
}

func RateLimit(rpm int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(rpm, time.Minute, time.Now())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getIp(r)
			now := time.Now()
			d := limiter.allow(ip, now)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

			if !d.allowed {
				retryAfter := max(int(d.resetAt.Sub(now).Seconds()), 1)
				logger.Warn("HTTP: Превышен лимит запросов",
					zap.String("client_ip", ip),
					zap.String("request_id", GetRequestID(r.Context())))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":       "rate_limit_exceeded",
					"message":     "Слишком много запросов. Попробуйте позже.",
					"retry_after": retryAfter,
					"request_id":  GetRequestID(r.Context()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
