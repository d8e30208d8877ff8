package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/service"
	"github.com/ssdc-app/consent-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserFixture(t *testing.T) (*service.UserService, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	stores := testutil.NewStores(mock)
	return service.NewUserService(stores.Users, stores.Sessions, mock, zap.NewNop()), mock
}

func TestRegisterAssignsSequentialAddresses(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "100001", alice.Address)

	acme, err := svc.Register(ctx, "acme", "secret", model.RoleOrganization)
	require.NoError(t, err)
	assert.Equal(t, "100002", acme.Address)

	// Пароль наружу не отдаём в открытом виде
	assert.NotEqual(t, "secret", alice.PasswordHash)
	assert.NotEmpty(t, alice.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "secret", model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = svc.Register(ctx, "alice", "", model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = svc.Register(ctx, "alice", "secret", "admin")
	assert.ErrorIs(t, err, model.ErrInvalidRole)
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other", model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	// То же имя с другой ролью — другой пользователь
	_, err = svc.Register(ctx, "alice", "secret", model.RoleOrganization)
	assert.NoError(t, err)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, mock := newUserFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong", model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "alice", "secret", model.RoleOrganization)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	user, session, err := svc.Login(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, registered.Address, user.Address)
	require.NotEmpty(t, session.Token)

	authed, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.Address, authed.Address)

	_, err = svc.Authenticate(ctx, "bogus-token")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// Сессия истекает
	mock.Add(service.SessionTTL + time.Minute)
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestDeleteExpiredSessions(t *testing.T) {
	svc, mock := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)

	_, old, err := svc.Login(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)

	mock.Add(service.SessionTTL + time.Minute)

	_, fresh, err := svc.Login(ctx, "alice", "secret", model.RoleStudent)
	require.NoError(t, err)

	removed, err := svc.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = svc.Authenticate(ctx, old.Token)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}
