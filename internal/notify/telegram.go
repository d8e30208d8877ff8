package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/ssdc-app/consent-backend/internal/model"
	"go.uber.org/zap"
)

// TelegramNotifier шлёт события заявок в настроенный Telegram-чат
// (операционный канал для демо-стенда)
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID string
	logger *zap.Logger
}

func NewTelegramNotifier(token, chatID string, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (n *TelegramNotifier) RequestCreated(ctx context.Context, req *model.AccessRequest) {
	n.send(ctx, fmt.Sprintf("📨 %s requested access to %q of student %s (request %s)",
		req.RequesterName, req.Category, req.Student, req.ID))
}

func (n *TelegramNotifier) ConsentGranted(ctx context.Context, req *model.AccessRequest) {
	n.send(ctx, fmt.Sprintf("✅ Student %s granted request %s (%q) until %s",
		req.Student, req.ID, req.Category, req.ExpiryTime.Format("2006-01-02 15:04:05")))
}

func (n *TelegramNotifier) ConsentRevoked(ctx context.Context, req *model.AccessRequest) {
	n.send(ctx, fmt.Sprintf("🚫 Student %s revoked request %s (%q)",
		req.Student, req.ID, req.Category))
}

// send отправляет сообщение, ошибки только логируем
func (n *TelegramNotifier) send(ctx context.Context, text string) {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Warn("Failed to send telegram notification", zap.Error(err))
	}
}
