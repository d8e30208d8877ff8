package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/service"
)

type createRequestBody struct {
	StudentAddress   string  `json:"studentAddress"`
	RequesterAddress string  `json:"requesterAddress"`
	RequesterName    string  `json:"requesterName"`
	FieldName        string  `json:"fieldName"`
	DurationHours    float64 `json:"durationHours"`
	Note             string  `json:"note"`
}

// CreateRequest создает заявку на доступ. Адрес организации в теле должен
// совпадать с аутентифицированным пользователем.
func (h *Handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user := principal(r)

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, fmt.Errorf("invalid json body: %w", model.ErrInvalidArgument))
		return
	}

	if body.RequesterAddress != "" && body.RequesterAddress != user.Address {
		h.respondError(w, fmt.Errorf("requester address mismatch: %w", model.ErrForbidden))
		return
	}

	request, err := h.consentService.CreateRequest(r.Context(), service.CreateRequestInput{
		Student:         body.StudentAddress,
		Requester:       user.Address,
		RequesterName:   body.RequesterName,
		Category:        body.FieldName,
		Note:            body.Note,
		DurationSeconds: int64(body.DurationHours * 3600),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"request": request,
	})
}

// StudentRequests отдаёт все заявки, где студент — субъект данных
func (h *Handlers) StudentRequests(w http.ResponseWriter, r *http.Request) {
	views, err := h.consentService.ListForStudent(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	if views == nil {
		views = []*model.AccessRequestView{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"requests": views})
}

// OrgRequests отдаёт все заявки организации
func (h *Handlers) OrgRequests(w http.ResponseWriter, r *http.Request) {
	views, err := h.consentService.ListForOrganization(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	if views == nil {
		views = []*model.AccessRequestView{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"requests": views})
}

// Grant одобряет заявку от имени аутентифицированного студента
func (h *Handlers) Grant(w http.ResponseWriter, r *http.Request) {
	request, err := h.consentService.Grant(r.Context(), chi.URLParam(r, "id"), principal(r).Address)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"request": request,
	})
}

// Revoke отзывает заявку от имени аутентифицированного студента
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	request, err := h.consentService.Revoke(r.Context(), chi.URLParam(r, "id"), principal(r).Address)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"request": request,
	})
}

// View отдаёт байты привязанного документа, пока доступ действителен.
// Реестр проверяет права, байты стримит DocumentService.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	request, err := h.consentService.View(r.Context(), chi.URLParam(r, "id"), principal(r).Address)
	if err != nil {
		h.respondError(w, err)
		return
	}

	doc, file, err := h.documentService.Open(r.Context(), request.BoundCID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer file.Close()

	disposition := "attachment"
	if doc.IsBrowserViewable() {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", doc.EffectiveMimeType())
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`%s; filename="%s"`, disposition, url.PathEscape(doc.OriginalName)))

	http.ServeContent(w, r, doc.OriginalName, doc.UploadedAt, file)
}
