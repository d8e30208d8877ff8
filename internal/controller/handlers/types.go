package handlers

import (
	"github.com/ssdc-app/consent-backend/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки HTTP-запросов
type Handlers struct {
	userService     *service.UserService
	documentService *service.DocumentService
	consentService  *service.ConsentService
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик запросов
func NewHandlers(
	userService *service.UserService,
	documentService *service.DocumentService,
	consentService *service.ConsentService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:     userService,
		documentService: documentService,
		consentService:  consentService,
		logger:          logger,
	}
}
