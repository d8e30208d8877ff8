package service

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/ssdc-app/consent-backend/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL время жизни bearer-токена
const SessionTTL = 24 * time.Hour

type UserService struct {
	userRepo    UserStore
	sessionRepo SessionStore
	clock       clock.Clock
	logger      *zap.Logger
}

func NewUserService(userRepo UserStore, sessionRepo SessionStore, clk clock.Clock, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		clock:       clk,
		logger:      logger,
	}
}

// Register регистрирует нового пользователя. Пароль храним только как
// bcrypt-хэш. Пара (имя, роль) уникальна.
func (s *UserService) Register(ctx context.Context, name, password, role string) (*model.User, error) {
	if name == "" || password == "" || role == "" {
		return nil, fmt.Errorf("name, password and role are required: %w", model.ErrInvalidArgument)
	}

	if !model.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, model.ErrInvalidRole)
	}

	// Проверяем, нет ли уже такого пользователя
	existing, err := s.userRepo.GetByNameAndRole(ctx, name, role)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if existing != nil {
		return nil, fmt.Errorf("user already exists: %w", model.ErrAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.String("address", user.Address),
		zap.String("role", user.Role),
	)

	return user, nil
}

// Login проверяет учётные данные и выдаёт сессию
func (s *UserService) Login(ctx context.Context, name, password, role string) (*model.User, *model.Session, error) {
	if name == "" || password == "" || role == "" {
		return nil, nil, fmt.Errorf("name, password and role are required: %w", model.ErrInvalidArgument)
	}

	user, err := s.userRepo.GetByNameAndRole(ctx, name, role)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, nil, fmt.Errorf("invalid name or password: %w", model.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("invalid name or password: %w", model.ErrUnauthorized)
	}

	now := s.clock.Now()
	session := &model.Session{
		Token:     uuid.NewString(),
		Address:   user.Address,
		ExpiresAt: now.Add(SessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User logged in",
		zap.String("address", user.Address),
		zap.String("role", user.Role),
	)

	return user, session, nil
}

// Authenticate резолвит bearer-токен в пользователя
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", model.ErrUnauthorized)
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session == nil || !session.IsValid(s.clock.Now()) {
		return nil, fmt.Errorf("session expired or unknown: %w", model.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByAddress(ctx, session.Address)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, fmt.Errorf("session user missing: %w", model.ErrUnauthorized)
	}

	return user, nil
}

// GetStudentsWithDocuments получает студентов с хотя бы одним документом
// (для выпадающего списка у организаций)
func (s *UserService) GetStudentsWithDocuments(ctx context.Context) ([]*model.User, error) {
	students, err := s.userRepo.GetStudentsWithDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("get students: %w", err)
	}

	return students, nil
}

// DeleteExpiredSessions удаляет истёкшие сессии (вызывается janitor'ом)
func (s *UserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessionRepo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return removed, nil
}
