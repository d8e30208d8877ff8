package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/repository/base"
)

type AccessRequestRepository struct {
	*base.Repository
}

func NewAccessRequestRepository(pool *pgxpool.Pool) *AccessRequestRepository {
	return &AccessRequestRepository{Repository: base.NewRepository(pool)}
}

const requestColumns = `id, student, requester, requester_name, category, note, duration_seconds, bound_cid, state, expiry_time, created_at, updated_at`

func scanRequest(row pgx.Row) (*model.AccessRequest, error) {
	var req model.AccessRequest
	err := row.Scan(
		&req.ID,
		&req.Student,
		&req.Requester,
		&req.RequesterName,
		&req.Category,
		&req.Note,
		&req.DurationSeconds,
		&req.BoundCID,
		&req.State,
		&req.ExpiryTime,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создает заявку
func (r *AccessRequestRepository) Create(ctx context.Context, req *model.AccessRequest) error {
	query := `
		INSERT INTO access_requests (id, student, requester, requester_name, category, note, duration_seconds, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		req.ID,
		req.Student,
		req.Requester,
		req.RequesterName,
		req.Category,
		req.Note,
		req.DurationSeconds,
		req.State,
	).Scan(&req.CreatedAt)

	if err != nil {
		return fmt.Errorf("create access request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *AccessRequestRepository) GetByID(ctx context.Context, id string) (*model.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests
		WHERE id = $1
	`

	req, err := scanRequest(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get access request: %w", err)
	}

	return req, nil
}

// Mutate изменяет заявку под блокировкой строки: SELECT ... FOR UPDATE,
// применяет fn к снимку и записывает результат в одной транзакции.
// Конкурентные grant/revoke по одному id сериализуются на этой блокировке;
// разные id друг другу не мешают. Если fn возвращает ошибку, заявка
// остаётся нетронутой.
func (r *AccessRequestRepository) Mutate(ctx context.Context, id string, fn func(req *model.AccessRequest) error) (*model.AccessRequest, error) {
	var req *model.AccessRequest

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT ` + requestColumns + `
			FROM access_requests
			WHERE id = $1
			FOR UPDATE
		`

		var err error
		req, err = scanRequest(tx.QueryRow(ctx, query, id))
		if err != nil {
			if base.IsNotFound(err) {
				return fmt.Errorf("access request %s: %w", id, model.ErrNotFound)
			}
			return fmt.Errorf("lock access request: %w", err)
		}

		if err := fn(req); err != nil {
			return err
		}

		now := time.Now()
		req.UpdatedAt = &now

		update := `
			UPDATE access_requests
			SET bound_cid = $1, state = $2, expiry_time = $3, updated_at = $4
			WHERE id = $5
		`

		if _, err := tx.Exec(ctx, update, req.BoundCID, req.State, req.ExpiryTime, req.UpdatedAt, req.ID); err != nil {
			return fmt.Errorf("update access request: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// GetByStudent получает заявки студента, новые первыми (стабильный порядок)
func (r *AccessRequestRepository) GetByStudent(ctx context.Context, student string) ([]*model.AccessRequestView, error) {
	return r.listDecorated(ctx, "r.student", student)
}

// GetByRequester получает заявки организации, новые первыми (стабильный порядок)
func (r *AccessRequestRepository) GetByRequester(ctx context.Context, requester string) ([]*model.AccessRequestView, error) {
	return r.listDecorated(ctx, "r.requester", requester)
}

// listDecorated выбирает заявки по полю-фильтру вместе с display-полями
// привязанного документа (LEFT JOIN, т.к. документа может не быть)
func (r *AccessRequestRepository) listDecorated(ctx context.Context, field, value string) ([]*model.AccessRequestView, error) {
	query := `
		SELECT r.id, r.student, r.requester, r.requester_name, r.category, r.note, r.duration_seconds,
		       r.bound_cid, r.state, r.expiry_time, r.created_at, r.updated_at,
		       COALESCE(d.original_name, ''), COALESCE(d.mime_type, '')
		FROM access_requests r
		LEFT JOIN documents d ON d.cid = r.bound_cid AND r.bound_cid <> ''
		WHERE ` + field + ` = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	defer rows.Close()

	var views []*model.AccessRequestView
	for rows.Next() {
		var v model.AccessRequestView
		err := rows.Scan(
			&v.ID,
			&v.Student,
			&v.Requester,
			&v.RequesterName,
			&v.Category,
			&v.Note,
			&v.DurationSeconds,
			&v.BoundCID,
			&v.State,
			&v.ExpiryTime,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.OriginalName,
			&v.MimeType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		views = append(views, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access requests: %w", err)
	}

	return views, nil
}

// CountExpiredGrants подсчитывает granted-заявки с истёкшим сроком
func (r *AccessRequestRepository) CountExpiredGrants(ctx context.Context, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM access_requests
		WHERE state = $1 AND expiry_time IS NOT NULL AND expiry_time < $2
	`

	var count int64
	err := r.QueryRow(ctx, query, model.RequestStateGranted, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expired grants: %w", err)
	}

	return count, nil
}
