package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ssdc-app/consent-backend/internal/model"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Address:   u.Address,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Health отвечает на liveness-проверку
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Register регистрирует нового пользователя
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, fmt.Errorf("invalid json body: %w", model.ErrInvalidArgument))
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Password, req.Role)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// Login проверяет учётные данные и выдаёт bearer-токен
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, fmt.Errorf("invalid json body: %w", model.ErrInvalidArgument))
		return
	}

	user, session, err := h.userService.Login(r.Context(), req.Name, req.Password, req.Role)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    toUserResponse(user),
		"token":   session.Token,
	})
}

// Students отдаёт студентов, загрузивших хотя бы один документ
// (для выпадающего списка на стороне организации)
func (h *Handlers) Students(w http.ResponseWriter, r *http.Request) {
	students, err := h.userService.GetStudentsWithDocuments(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	type studentEntry struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	}

	entries := make([]studentEntry, 0, len(students))
	for _, s := range students {
		entries = append(entries, studentEntry{Address: s.Address, Name: s.Name})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"students": entries})
}
