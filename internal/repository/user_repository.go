package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового пользователя. Адрес выдаётся из sequence
// (числа от 100001, как строки).
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (address, name, role, password_hash)
		VALUES (nextval('user_address_seq')::text, $1, $2, $3)
		RETURNING address, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.Name,
		user.Role,
		user.PasswordHash,
	).Scan(&user.Address, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByAddress получает пользователя по адресу
func (r *UserRepository) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	query := `
		SELECT address, name, role, password_hash, created_at
		FROM users
		WHERE address = $1
	`

	var user model.User
	err := r.QueryRow(ctx, query, address).Scan(
		&user.Address,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by address: %w", err)
	}

	return &user, nil
}

// GetByNameAndRole получает пользователя по имени и роли (логин)
func (r *UserRepository) GetByNameAndRole(ctx context.Context, name, role string) (*model.User, error) {
	query := `
		SELECT address, name, role, password_hash, created_at
		FROM users
		WHERE name = $1 AND role = $2
	`

	var user model.User
	err := r.QueryRow(ctx, query, name, role).Scan(
		&user.Address,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by name and role: %w", err)
	}

	return &user, nil
}

// GetStudentsWithDocuments получает студентов, загрузивших хотя бы один документ
func (r *UserRepository) GetStudentsWithDocuments(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT DISTINCT u.address, u.name, u.role, u.password_hash, u.created_at
		FROM users u
		JOIN documents d ON d.owner = u.address
		WHERE u.role = $1
		ORDER BY u.address ASC
	`

	rows, err := r.Query(ctx, query, model.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("get students with documents: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.Address,
			&user.Name,
			&user.Role,
			&user.PasswordHash,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}
