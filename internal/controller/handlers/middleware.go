package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ssdc-app/consent-backend/internal/model"
	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticate резолвит Authorization: Bearer <token> в пользователя
// и кладёт его в контекст запроса
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			h.respondError(w, fmt.Errorf("missing bearer token: %w", model.ErrUnauthorized))
			return
		}

		user, err := h.userService.Authenticate(r.Context(), token)
		if err != nil {
			h.respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal достаёт аутентифицированного пользователя из контекста.
// Работает только под Authenticate-middleware.
func principal(r *http.Request) *model.User {
	user, _ := r.Context().Value(principalKey).(*model.User)
	return user
}

// statusRecorder запоминает статус ответа для логирования
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// RequestLogger логирует каждый запрос
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		h.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
