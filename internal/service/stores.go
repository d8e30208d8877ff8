package service

import (
	"context"
	"time"

	"github.com/ssdc-app/consent-backend/internal/model"
)

// Интерфейсы хранилищ, которые потребляют сервисы. Продакшн-реализации
// живут в internal/repository (Postgres), тестовые — в internal/testutil.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByAddress(ctx context.Context, address string) (*model.User, error)
	GetByNameAndRole(ctx context.Context, name, role string) (*model.User, error)
	GetStudentsWithDocuments(ctx context.Context) ([]*model.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Document) error
	GetByCID(ctx context.Context, cid string) (*model.Document, error)
	GetByOwner(ctx context.Context, owner string) ([]*model.Document, error)
	GetStoredNames(ctx context.Context) (map[string]bool, error)
}

type AccessRequestStore interface {
	Create(ctx context.Context, req *model.AccessRequest) error
	GetByID(ctx context.Context, id string) (*model.AccessRequest, error)
	// Mutate применяет fn к заявке атомарно относительно других Mutate
	// по тому же id; ошибка fn оставляет заявку нетронутой.
	Mutate(ctx context.Context, id string, fn func(req *model.AccessRequest) error) (*model.AccessRequest, error)
	GetByStudent(ctx context.Context, student string) ([]*model.AccessRequestView, error)
	GetByRequester(ctx context.Context, requester string) ([]*model.AccessRequestView, error)
	CountExpiredGrants(ctx context.Context, now time.Time) (int64, error)
}
