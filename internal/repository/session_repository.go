package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/repository/base"
)

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(pool)}
}

// Create создает новую сессию
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (token, address, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		session.Token,
		session.Address,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByToken получает сессию по токену
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	query := `
		SELECT token, address, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`

	var session model.Session
	err := r.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.Address,
		&session.CreatedAt,
		&session.ExpiresAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

// DeleteExpired удаляет истёкшие сессии, возвращает число удалённых
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1
	`

	affected, err := r.ExecAffected(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return affected, nil
}
