package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"taskManager/internal/auth"
	"taskManager/internal/logger"

	"go.uber.org/zap"
)

// Authenticate пропускает дальше только запросы с валидным Bearer токеном
func Authenticate(dir auth.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, r, http.StatusUnauthorized, "unauthorized", auth.ErrMissingToken)
				return
			}

			caller, err := dir.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, http.StatusUnauthorized, "unauthorized", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok {
			writeAuthError(w, r, http.StatusUnauthorized, "unauthorized", auth.ErrMissingToken)
			return
		}
		if !caller.IsAdmin {
			writeAuthError(w, r, http.StatusForbidden, "forbidden", errors.New("требуется роль администратора"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	logger.Warn("HTTP: Запрос отклонён",
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", getIp(r)),
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      code,
		"message":    err.Error(),
		"request_id": GetRequestID(r.Context()),
	})
}
