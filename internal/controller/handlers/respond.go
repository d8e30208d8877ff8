package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssdc-app/consent-backend/internal/model"
	"go.uber.org/zap"
)

// respondJSON пишет JSON-ответ
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError маппит доменную ошибку на HTTP-статус. Текст внешней обёртки
// уходит клиенту: UI различает "доступ отозван", "доступ истёк" и
// "документ ещё не доступен" именно по нему.
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrNoDocument):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyExists):
		status = http.StatusConflict
	default:
		// Внутреннюю ошибку наружу не показываем
		message = "internal server error"
		h.logger.Error("Internal error", zap.Error(err))
	}

	h.respondJSON(w, status, map[string]string{"error": message})
}
