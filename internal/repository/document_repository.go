package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/repository/base"
)

type DocumentRepository struct {
	*base.Repository
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{Repository: base.NewRepository(pool)}
}

// Upsert сохраняет метаданные документа. Повторная загрузка тех же байт
// (тот же CID) перезаписывает запись, как в исходной системе.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	query := `
		INSERT INTO documents (cid, owner, category, original_name, stored_name, size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cid) DO UPDATE SET
			owner = EXCLUDED.owner,
			category = EXCLUDED.category,
			original_name = EXCLUDED.original_name,
			stored_name = EXCLUDED.stored_name,
			size = EXCLUDED.size,
			mime_type = EXCLUDED.mime_type,
			uploaded_at = now()
		RETURNING uploaded_at
	`

	err := r.QueryRow(
		ctx, query,
		doc.CID,
		doc.Owner,
		doc.Category,
		doc.OriginalName,
		doc.StoredName,
		doc.Size,
		doc.MimeType,
	).Scan(&doc.UploadedAt)

	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	return nil
}

// GetByCID получает документ по идентификатору
func (r *DocumentRepository) GetByCID(ctx context.Context, cid string) (*model.Document, error) {
	query := `
		SELECT cid, owner, category, original_name, stored_name, size, mime_type, uploaded_at
		FROM documents
		WHERE cid = $1
	`

	var doc model.Document
	err := r.QueryRow(ctx, query, cid).Scan(
		&doc.CID,
		&doc.Owner,
		&doc.Category,
		&doc.OriginalName,
		&doc.StoredName,
		&doc.Size,
		&doc.MimeType,
		&doc.UploadedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// GetByOwner получает документы студента, новые первыми.
// Порядок важен: grant-время биндинг берёт первый подходящий.
func (r *DocumentRepository) GetByOwner(ctx context.Context, owner string) ([]*model.Document, error) {
	query := `
		SELECT cid, owner, category, original_name, stored_name, size, mime_type, uploaded_at
		FROM documents
		WHERE owner = $1
		ORDER BY uploaded_at DESC, cid DESC
	`

	rows, err := r.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get documents by owner: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		var doc model.Document
		err := rows.Scan(
			&doc.CID,
			&doc.Owner,
			&doc.Category,
			&doc.OriginalName,
			&doc.StoredName,
			&doc.Size,
			&doc.MimeType,
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// GetStoredNames получает имена всех файлов, на которые ссылаются документы
// (для уборки осиротевших файлов в upload-директории)
func (r *DocumentRepository) GetStoredNames(ctx context.Context) (map[string]bool, error) {
	query := `SELECT stored_name FROM documents`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get stored names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan stored name: %w", err)
		}
		names[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored names: %w", err)
	}

	return names, nil
}
