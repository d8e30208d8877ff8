// Package testutil содержит in-memory реализации интерфейсов хранилищ
// из internal/service для тестов без Postgres. Семантика повторяет
// SQL-реализации: стабильный порядок "новые первыми", Mutate сериализуется,
// ошибка fn оставляет заявку нетронутой.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ssdc-app/consent-backend/internal/model"
)

// Stores собирает все in-memory хранилища на общих часах
type Stores struct {
	Users     *UserStore
	Sessions  *SessionStore
	Documents *DocumentStore
	Requests  *AccessRequestStore
}

func NewStores(clk clock.Clock) *Stores {
	docs := NewDocumentStore(clk)
	return &Stores{
		Users:     NewUserStore(clk, docs),
		Sessions:  NewSessionStore(),
		Documents: docs,
		Requests:  NewAccessRequestStore(clk, docs),
	}
}

// ---- UserStore ----

type UserStore struct {
	mu       sync.Mutex
	clock    clock.Clock
	docs     *DocumentStore
	users    map[string]*model.User
	nextAddr int64
}

func NewUserStore(clk clock.Clock, docs *DocumentStore) *UserStore {
	return &UserStore{
		clock:    clk,
		docs:     docs,
		users:    make(map[string]*model.User),
		nextAddr: 100001,
	}
}

func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Address = strconv.FormatInt(s.nextAddr, 10)
	s.nextAddr++
	user.CreatedAt = s.clock.Now()

	copied := *user
	s.users[user.Address] = &copied
	return nil
}

func (s *UserStore) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[address]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *UserStore) GetByNameAndRole(ctx context.Context, name, role string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Name == name && user.Role == role {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetStudentsWithDocuments(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var students []*model.User
	for _, user := range s.users {
		if user.Role != model.RoleStudent {
			continue
		}
		docs, _ := s.docs.GetByOwner(ctx, user.Address)
		if len(docs) == 0 {
			continue
		}
		copied := *user
		students = append(students, &copied)
	}

	sort.Slice(students, func(i, j int) bool {
		return students[i].Address < students[j].Address
	})
	return students, nil
}

// ---- SessionStore ----

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*model.Session)}
}

func (s *SessionStore) Create(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.Token] = &copied
	return nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// ---- DocumentStore ----

type storedDocument struct {
	doc *model.Document
	seq int64
}

type DocumentStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	docs    map[string]*storedDocument
	nextSeq int64
}

func NewDocumentStore(clk clock.Clock) *DocumentStore {
	return &DocumentStore{
		clock: clk,
		docs:  make(map[string]*storedDocument),
	}
}

func (s *DocumentStore) Upsert(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UploadedAt = s.clock.Now()
	s.nextSeq++

	copied := *doc
	s.docs[doc.CID] = &storedDocument{doc: &copied, seq: s.nextSeq}
	return nil
}

func (s *DocumentStore) GetByCID(ctx context.Context, cid string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[cid]
	if !ok {
		return nil, nil
	}
	copied := *stored.doc
	return &copied, nil
}

// GetByOwner возвращает документы владельца, новые первыми. При равных
// uploaded_at (mock-часы не двигали) позже загруженный считается новее.
func (s *DocumentStore) GetByOwner(ctx context.Context, owner string) ([]*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*storedDocument
	for _, stored := range s.docs {
		if stored.doc.Owner == owner {
			entries = append(entries, stored)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].doc.UploadedAt.Equal(entries[j].doc.UploadedAt) {
			return entries[i].doc.UploadedAt.After(entries[j].doc.UploadedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	docs := make([]*model.Document, 0, len(entries))
	for _, stored := range entries {
		copied := *stored.doc
		docs = append(docs, &copied)
	}
	return docs, nil
}

func (s *DocumentStore) GetStoredNames(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]bool, len(s.docs))
	for _, stored := range s.docs {
		names[stored.doc.StoredName] = true
	}
	return names, nil
}

// ---- AccessRequestStore ----

type storedRequest struct {
	req *model.AccessRequest
	seq int64
}

type AccessRequestStore struct {
	mu       sync.Mutex
	clock    clock.Clock
	docs     *DocumentStore
	requests map[string]*storedRequest
	nextSeq  int64
}

func NewAccessRequestStore(clk clock.Clock, docs *DocumentStore) *AccessRequestStore {
	return &AccessRequestStore{
		clock:    clk,
		docs:     docs,
		requests: make(map[string]*storedRequest),
	}
}

func (s *AccessRequestStore) Create(ctx context.Context, req *model.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("duplicate request id %s", req.ID)
	}

	req.CreatedAt = s.clock.Now()
	s.nextSeq++

	copied := *req
	s.requests[req.ID] = &storedRequest{req: &copied, seq: s.nextSeq}
	return nil
}

func (s *AccessRequestStore) GetByID(ctx context.Context, id string) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *stored.req
	return &copied, nil
}

func (s *AccessRequestStore) Mutate(ctx context.Context, id string, fn func(req *model.AccessRequest) error) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("access request %s: %w", id, model.ErrNotFound)
	}

	// fn работает со снимком: при ошибке хранимая заявка не меняется
	snapshot := *stored.req
	if err := fn(&snapshot); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snapshot.UpdatedAt = &now
	*stored.req = snapshot

	copied := snapshot
	return &copied, nil
}

func (s *AccessRequestStore) GetByStudent(ctx context.Context, student string) ([]*model.AccessRequestView, error) {
	return s.list(ctx, func(req *model.AccessRequest) bool { return req.Student == student })
}

func (s *AccessRequestStore) GetByRequester(ctx context.Context, requester string) ([]*model.AccessRequestView, error) {
	return s.list(ctx, func(req *model.AccessRequest) bool { return req.Requester == requester })
}

func (s *AccessRequestStore) list(ctx context.Context, match func(*model.AccessRequest) bool) ([]*model.AccessRequestView, error) {
	type entry struct {
		req model.AccessRequest
		seq int64
	}

	s.mu.Lock()
	var entries []entry
	for _, stored := range s.requests {
		if match(stored.req) {
			entries = append(entries, entry{req: *stored.req, seq: stored.seq})
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].req.CreatedAt.Equal(entries[j].req.CreatedAt) {
			return entries[i].req.CreatedAt.After(entries[j].req.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	views := make([]*model.AccessRequestView, 0, len(entries))
	for _, e := range entries {
		view := &model.AccessRequestView{AccessRequest: e.req}
		if view.BoundCID != "" {
			if doc, _ := s.docs.GetByCID(ctx, view.BoundCID); doc != nil {
				view.OriginalName = doc.OriginalName
				view.MimeType = doc.MimeType
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AccessRequestStore) CountExpiredGrants(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, stored := range s.requests {
		req := stored.req
		if req.IsGranted() && req.ExpiryTime != nil && req.ExpiryTime.Before(now) {
			count++
		}
	}
	return count, nil
}
