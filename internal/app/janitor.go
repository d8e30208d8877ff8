package app

import (
	"context"
	"time"

	"github.com/ssdc-app/consent-backend/internal/service"
	"go.uber.org/zap"
)

// Janitor управляет фоновыми задачами обслуживания
type Janitor struct {
	userService     *service.UserService
	documentService *service.DocumentService
	consentService  *service.ConsentService
	logger          *zap.Logger
	stopChan        chan struct{}
}

// NewJanitor создаёт новый janitor
func NewJanitor(
	userService *service.UserService,
	documentService *service.DocumentService,
	consentService *service.ConsentService,
	logger *zap.Logger,
) *Janitor {
	return &Janitor{
		userService:     userService,
		documentService: documentService,
		consentService:  consentService,
		logger:          logger,
		stopChan:        make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("Starting background janitor")

	go j.runSweepTask(ctx)
}

// Stop останавливает фоновые задачи
func (j *Janitor) Stop() {
	j.logger.Info("Stopping background janitor")
	close(j.stopChan)
}

// runSweepTask периодически выполняет уборку
func (j *Janitor) runSweepTask(ctx context.Context) {
	// Первый запуск сразу при старте
	j.sweep(ctx)

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.stopChan:
			j.logger.Info("Sweep task stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Sweep task cancelled")
			return
		}
	}
}

// sweep удаляет истёкшие сессии и осиротевшие файлы в upload-директории.
// Сами заявки никогда не удаляются (append-only аудит), просто логируем
// количество granted-заявок с истёкшим сроком.
func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.userService.DeleteExpiredSessions(ctx)
	if err != nil {
		j.logger.Error("Failed to delete expired sessions", zap.Error(err))
	} else if removed > 0 {
		j.logger.Info("Expired sessions deleted", zap.Int64("count", removed))
	}

	orphans, err := j.documentService.SweepOrphans(ctx)
	if err != nil {
		j.logger.Error("Failed to sweep orphan files", zap.Error(err))
	} else if orphans > 0 {
		j.logger.Info("Orphan upload files removed", zap.Int("count", orphans))
	}

	expired, err := j.consentService.CountExpiredGrants(ctx)
	if err != nil {
		j.logger.Error("Failed to count expired grants", zap.Error(err))
		return
	}

	j.logger.Info("Janitor sweep completed", zap.Int64("expired_grants", expired))
}
