package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/service"
)

// Upload принимает multipart-загрузку документа от аутентифицированного
// студента. Поля: file (байты), fieldName (категория документа).
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	user := principal(r)

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1024)
	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		h.respondError(w, fmt.Errorf("parse multipart form: %w", model.ErrInvalidArgument))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, fmt.Errorf("no file uploaded: %w", model.ErrInvalidArgument))
		return
	}
	defer file.Close()

	category := r.FormValue("fieldName")
	mimeType := header.Header.Get("Content-Type")

	doc, err := h.documentService.Store(r.Context(), user, category, header.Filename, mimeType, file)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File uploaded successfully",
		"data": map[string]interface{}{
			"cid":          doc.CID,
			"fieldName":    doc.Category,
			"originalName": doc.OriginalName,
			"size":         doc.Size,
		},
	})
}

// Files отдаёт документы указанного студента
func (h *Handlers) Files(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	docs, err := h.documentService.GetByOwner(r.Context(), address)
	if err != nil {
		h.respondError(w, err)
		return
	}

	type fileEntry struct {
		CID          string `json:"cid"`
		FieldName    string `json:"fieldName"`
		OriginalName string `json:"originalName"`
		Size         int64  `json:"size"`
		UploadedAt   string `json:"uploadedAt"`
	}

	entries := make([]fileEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, fileEntry{
			CID:          doc.CID,
			FieldName:    doc.Category,
			OriginalName: doc.OriginalName,
			Size:         doc.Size,
			UploadedAt:   doc.UploadedAt.UTC().Format(time.RFC3339),
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"files": entries})
}
