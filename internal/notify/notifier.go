package notify

import (
	"context"

	"github.com/ssdc-app/consent-backend/internal/model"
)

// Notifier получает события жизненного цикла заявок. Доставка best-effort:
// ошибки логируются реализацией и никогда не доходят до вызывающего.
type Notifier interface {
	RequestCreated(ctx context.Context, req *model.AccessRequest)
	ConsentGranted(ctx context.Context, req *model.AccessRequest)
	ConsentRevoked(ctx context.Context, req *model.AccessRequest)
}

// Nop никуда ничего не отправляет (уведомления не настроены)
type Nop struct{}

func (Nop) RequestCreated(context.Context, *model.AccessRequest) {}
func (Nop) ConsentGranted(context.Context, *model.AccessRequest) {}
func (Nop) ConsentRevoked(context.Context, *model.AccessRequest) {}
