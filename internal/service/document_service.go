package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/ssdc-app/consent-backend/internal/model"
	"go.uber.org/zap"
)

// MaxUploadSize лимит размера загружаемого файла
const MaxUploadSize = 10 * 1024 * 1024 // 10MB

type DocumentService struct {
	documentRepo DocumentStore
	uploadDir    string
	clock        clock.Clock
	logger       *zap.Logger
}

func NewDocumentService(documentRepo DocumentStore, uploadDir string, clk clock.Clock, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		uploadDir:    uploadDir,
		clock:        clk,
		logger:       logger,
	}
}

// ComputeCID считает content-derived идентификатор документа:
// "Qm" + первые 44 hex-символа sha256 (формат исходной системы)
func ComputeCID(data []byte) string {
	sum := sha256.Sum256(data)
	return "Qm" + hex.EncodeToString(sum[:])[:44]
}

// Store сохраняет байты документа на диск и метаданные в хранилище.
// Владельцем может быть только студент. Повторная загрузка тех же байт
// (тот же CID) обновляет метаданные.
func (s *DocumentService) Store(ctx context.Context, owner *model.User, category, originalName, mimeType string, r io.Reader) (*model.Document, error) {
	if !owner.IsStudent() {
		return nil, fmt.Errorf("only students can upload documents: %w", model.ErrInvalidRole)
	}

	if category == "" {
		category = "Document"
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", model.ErrInvalidArgument)
	}

	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", MaxUploadSize, model.ErrInvalidArgument)
	}

	storedName := fmt.Sprintf("%d-%s%s", s.clock.Now().UnixMilli(), uuid.NewString(), filepath.Ext(originalName))
	path := filepath.Join(s.uploadDir, storedName)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	doc := &model.Document{
		CID:          ComputeCID(data),
		Owner:        owner.Address,
		Category:     category,
		OriginalName: originalName,
		StoredName:   storedName,
		Size:         int64(len(data)),
		MimeType:     mimeType,
	}

	if err := s.documentRepo.Upsert(ctx, doc); err != nil {
		// Метаданные не записались — файл на диске не нужен
		_ = os.Remove(path)
		return nil, fmt.Errorf("store document metadata: %w", err)
	}

	s.logger.Info("Document stored",
		zap.String("cid", doc.CID),
		zap.String("owner", doc.Owner),
		zap.String("category", doc.Category),
		zap.Int64("size", doc.Size),
	)

	return doc, nil
}

// GetByOwner получает документы студента, новые первыми
func (s *DocumentService) GetByOwner(ctx context.Context, owner string) ([]*model.Document, error) {
	docs, err := s.documentRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}

	return docs, nil
}

// Open открывает байты документа для чтения. Caller обязан закрыть reader.
func (s *DocumentService) Open(ctx context.Context, cid string) (*model.Document, io.ReadSeekCloser, error) {
	doc, err := s.documentRepo.GetByCID(ctx, cid)
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}

	if doc == nil {
		return nil, nil, fmt.Errorf("file data not found: %w", model.ErrNotFound)
	}

	f, err := os.Open(filepath.Join(s.uploadDir, doc.StoredName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("physical file not found on server: %w", model.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("open document file: %w", err)
	}

	return doc, f, nil
}

// SweepOrphans удаляет файлы в upload-директории, на которые не ссылается
// ни один документ (вызывается janitor'ом)
func (s *DocumentService) SweepOrphans(ctx context.Context) (int, error) {
	known, err := s.documentRepo.GetStoredNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("get stored names: %w", err)
	}

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || known[entry.Name()] {
			continue
		}

		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			s.logger.Warn("Failed to remove orphan file",
				zap.String("name", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	return removed, nil
}
