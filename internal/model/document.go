package model

import (
	"strings"
	"time"
)

// Document is the metadata record of one uploaded blob. The bytes themselves
// live in the upload directory under StoredName; CID is the content-derived
// identifier requests bind to.
type Document struct {
	CID          string    `json:"cid"`
	Owner        string    `json:"owner"`
	Category     string    `json:"fieldName"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"-"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// MIME types браузер может показать inline, остальное отдаём attachment'ом
var browserViewableMimeTypes = map[string]bool{
	"image/jpeg":             true,
	"image/png":              true,
	"image/gif":              true,
	"image/webp":             true,
	"image/svg+xml":          true,
	"application/pdf":        true,
	"text/plain":             true,
	"text/html":              true,
	"text/css":               true,
	"application/javascript": true,
}

// EffectiveMimeType возвращает MIME type для отдачи файла. Для .pdf файлов
// с неправильным stored type принудительно ставим application/pdf.
func (d *Document) EffectiveMimeType() string {
	if strings.HasSuffix(strings.ToLower(d.OriginalName), ".pdf") && d.MimeType != "application/pdf" {
		return "application/pdf"
	}
	if d.MimeType == "" {
		return "application/octet-stream"
	}
	return d.MimeType
}

// IsBrowserViewable проверяет, можно ли показать документ inline
func (d *Document) IsBrowserViewable() bool {
	return browserViewableMimeTypes[d.EffectiveMimeType()]
}
