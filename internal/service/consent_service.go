package service

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/notify"
	"go.uber.org/zap"
)

// ConsentService реестр заявок на доступ: владеет жизненным циклом
// request -> grant -> revoke/expire и правилами авторизации переходов
type ConsentService struct {
	requestRepo  AccessRequestStore
	documentRepo DocumentStore
	userRepo     UserStore
	notifier     notify.Notifier
	clock        clock.Clock
	logger       *zap.Logger
}

func NewConsentService(
	requestRepo AccessRequestStore,
	documentRepo DocumentStore,
	userRepo UserStore,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *ConsentService {
	return &ConsentService{
		requestRepo:  requestRepo,
		documentRepo: documentRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		clock:        clk,
		logger:       logger,
	}
}

// CreateRequestInput параметры новой заявки
type CreateRequestInput struct {
	Student         string
	Requester       string
	RequesterName   string
	Category        string
	Note            string
	DurationSeconds int64
}

// CreateRequest создает заявку на доступ. Вызывающий должен быть
// организацией; студент проверяется на этапе создания (а не grant'а),
// чтобы в реестр не попадали заявки, которые никогда не смогут быть
// одобрены.
func (s *ConsentService) CreateRequest(ctx context.Context, in CreateRequestInput) (*model.AccessRequest, error) {
	if in.Category == "" {
		return nil, fmt.Errorf("category is required: %w", model.ErrInvalidArgument)
	}

	if in.DurationSeconds <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", model.ErrInvalidArgument)
	}

	requester, err := s.userRepo.GetByAddress(ctx, in.Requester)
	if err != nil {
		return nil, fmt.Errorf("get requester: %w", err)
	}

	if requester == nil || !requester.IsOrganization() {
		return nil, fmt.Errorf("requester must be an organization: %w", model.ErrInvalidRole)
	}

	student, err := s.userRepo.GetByAddress(ctx, in.Student)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	if student == nil || !student.IsStudent() {
		return nil, fmt.Errorf("student %s is not registered: %w", in.Student, model.ErrNotFound)
	}

	requesterName := in.RequesterName
	if requesterName == "" {
		requesterName = requester.Name
	}

	request := &model.AccessRequest{
		ID:              uuid.NewString(),
		Student:         in.Student,
		Requester:       in.Requester,
		RequesterName:   requesterName,
		Category:        in.Category,
		Note:            in.Note,
		DurationSeconds: in.DurationSeconds,
		State:           model.RequestStatePending,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Access request created",
		zap.String("request_id", request.ID),
		zap.String("student", request.Student),
		zap.String("requester", request.Requester),
		zap.String("category", request.Category),
		zap.Int64("duration_seconds", request.DurationSeconds),
	)

	s.notifier.RequestCreated(ctx, request)

	return request, nil
}

// Grant одобряет заявку. Разрешён только студенту, на которого заявка
// выписана. Повторный grant разрешён из любого состояния: срок действия
// пересчитывается от текущего момента, отзыв снимается, привязка документа
// пересчитывается — так студент может заново одобрить отозванную или
// истёкшую заявку без новой заявки от организации.
func (s *ConsentService) Grant(ctx context.Context, requestID, caller string) (*model.AccessRequest, error) {
	request, err := s.requestRepo.Mutate(ctx, requestID, func(req *model.AccessRequest) error {
		if req.Student != caller {
			return fmt.Errorf("only the data subject may grant their own request: %w", model.ErrUnauthorized)
		}

		// Привязываем самый свежий документ студента нужной категории.
		// Если подходящего нет — оставляем прежнюю привязку (или её
		// отсутствие): grant всё равно проходит, организация увидит
		// "awaiting data sync" до повторного grant'а.
		docs, err := s.documentRepo.GetByOwner(ctx, req.Student)
		if err != nil {
			return fmt.Errorf("list student documents: %w", err)
		}

		for _, doc := range docs {
			if doc.Category == req.Category {
				req.BoundCID = doc.CID
				break
			}
		}

		expiry := s.clock.Now().Add(time.Duration(req.DurationSeconds) * time.Second)
		req.State = model.RequestStateGranted
		req.ExpiryTime = &expiry

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Consent granted",
		zap.String("request_id", request.ID),
		zap.String("student", request.Student),
		zap.String("bound_cid", request.BoundCID),
		zap.Timep("expiry_time", request.ExpiryTime),
	)

	s.notifier.ConsentGranted(ctx, request)

	return request, nil
}

// Revoke отзывает заявку. Разрешён из любого состояния (доступ организации
// должен гаситься немедленно, независимо от текущего состояния заявки).
// Привязка документа и expiry сохраняются для аудита.
func (s *ConsentService) Revoke(ctx context.Context, requestID, caller string) (*model.AccessRequest, error) {
	request, err := s.requestRepo.Mutate(ctx, requestID, func(req *model.AccessRequest) error {
		if req.Student != caller {
			return fmt.Errorf("only the data subject may revoke their own request: %w", model.ErrUnauthorized)
		}

		req.State = model.RequestStateRevoked

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Consent revoked",
		zap.String("request_id", request.ID),
		zap.String("student", request.Student),
	)

	s.notifier.ConsentRevoked(ctx, request)

	return request, nil
}

// ListForStudent получает все заявки, где студент — субъект данных.
// Порядок: новые первыми, стабильный.
func (s *ConsentService) ListForStudent(ctx context.Context, address string) ([]*model.AccessRequestView, error) {
	views, err := s.requestRepo.GetByStudent(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("list requests for student: %w", err)
	}

	return views, nil
}

// ListForOrganization получает все заявки организации.
// Порядок: новые первыми, стабильный.
func (s *ConsentService) ListForOrganization(ctx context.Context, address string) ([]*model.AccessRequestView, error) {
	views, err := s.requestRepo.GetByRequester(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("list requests for organization: %w", err)
	}

	return views, nil
}

// View проверяет право организации читать привязанный документ и возвращает
// его метаданные. Байты отдаёт DocumentService — реестр их не читает.
// Ошибки различают "доступ не выдан/отозван", "доступ истёк" и
// "документ ещё не привязан" — UI должен их показывать по-разному.
func (s *ConsentService) View(ctx context.Context, requestID, caller string) (*model.AccessRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}

	if request == nil {
		return nil, fmt.Errorf("access request not found: %w", model.ErrNotFound)
	}

	if request.Requester != caller {
		return nil, fmt.Errorf("request belongs to another organization: %w", model.ErrForbidden)
	}

	now := s.clock.Now()
	if !request.IsAccessValid(now) {
		if request.IsGranted() && request.IsExpired(now) {
			return nil, fmt.Errorf("access has expired: %w", model.ErrForbidden)
		}
		return nil, fmt.Errorf("access not granted or has been revoked: %w", model.ErrForbidden)
	}

	if request.BoundCID == "" {
		return nil, fmt.Errorf("document not yet available, awaiting data sync: %w", model.ErrNoDocument)
	}

	return request, nil
}

// CountExpiredGrants подсчитывает granted-заявки с истёкшим сроком
// (наблюдаемость для janitor'а; "expired" никогда не материализуется
// в хранимое состояние)
func (s *ConsentService) CountExpiredGrants(ctx context.Context) (int64, error) {
	count, err := s.requestRepo.CountExpiredGrants(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("count expired grants: %w", err)
	}

	return count, nil
}
