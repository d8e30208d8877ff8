package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ssdc-app/consent-backend/internal/controller/handlers"
	"github.com/ssdc-app/consent-backend/internal/service"
	"go.uber.org/zap"
)

// NewRouter собирает HTTP-роутер. Read-only листинги открыты (фильтрация
// по адресу и так отдаёт только своё), все мутирующие операции и чтение
// документов требуют bearer-токен.
func NewRouter(
	userService *service.UserService,
	documentService *service.DocumentService,
	consentService *service.ConsentService,
	logger *zap.Logger,
) http.Handler {
	h := handlers.NewHandlers(userService, documentService, consentService, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(h.RequestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Get("/files/{address}", h.Files)
		r.Get("/requests/student/{address}", h.StudentRequests)
		r.Get("/requests/org/{address}", h.OrgRequests)
		r.Get("/students", h.Students)

		// Аутентифицированные операции
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Post("/upload", h.Upload)
			r.Post("/requests", h.CreateRequest)
			r.Post("/requests/{id}/grant", h.Grant)
			r.Post("/requests/{id}/revoke", h.Revoke)
			r.Get("/view/{id}", h.View)
		})
	})

	return r
}
