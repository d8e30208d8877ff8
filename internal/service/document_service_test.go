package service_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
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

func newDocumentFixture(t *testing.T) (*service.DocumentService, *testutil.Stores, string) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	dir := t.TempDir()
	stores := testutil.NewStores(mock)
	svc := service.NewDocumentService(stores.Documents, dir, mock, zap.NewNop())
	return svc, stores, dir
}

func TestComputeCID(t *testing.T) {
	cid := service.ComputeCID([]byte("hello"))

	assert.Len(t, cid, 46)
	assert.Equal(t, "Qm", cid[:2])

	// Детерминированный: те же байты -> тот же CID
	assert.Equal(t, cid, service.ComputeCID([]byte("hello")))
	assert.NotEqual(t, cid, service.ComputeCID([]byte("hello!")))
}

func TestStoreWritesFileAndMetadata(t *testing.T) {
	svc, _, dir := newDocumentFixture(t)
	ctx := context.Background()

	student := &model.User{Address: "100001", Role: model.RoleStudent}
	content := []byte("%PDF-1.4 fake transcript")

	doc, err := svc.Store(ctx, student, "Transcript", "transcript.pdf", "application/pdf", bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, service.ComputeCID(content), doc.CID)
	assert.Equal(t, "100001", doc.Owner)
	assert.Equal(t, "Transcript", doc.Category)
	assert.Equal(t, int64(len(content)), doc.Size)

	onDisk, err := os.ReadFile(filepath.Join(dir, doc.StoredName))
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	docs, err := svc.GetByOwner(ctx, "100001")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.CID, docs[0].CID)
}

func TestStoreRejectsNonStudents(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)

	org := &model.User{Address: "100002", Role: model.RoleOrganization}
	_, err := svc.Store(context.Background(), org, "Transcript", "x.pdf", "application/pdf", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, model.ErrInvalidRole)
}

func TestStoreRejectsEmptyUpload(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)

	student := &model.User{Address: "100001", Role: model.RoleStudent}
	_, err := svc.Store(context.Background(), student, "Transcript", "x.pdf", "application/pdf", bytes.NewReader(nil))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestDefaultCategory(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)

	student := &model.User{Address: "100001", Role: model.RoleStudent}
	doc, err := svc.Store(context.Background(), student, "", "x.pdf", "application/pdf", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	assert.Equal(t, "Document", doc.Category)
}

func TestOpenStreamsStoredBytes(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)
	ctx := context.Background()

	student := &model.User{Address: "100001", Role: model.RoleStudent}
	content := []byte("certificate bytes")

	stored, err := svc.Store(ctx, student, "Certificate", "cert.png", "image/png", bytes.NewReader(content))
	require.NoError(t, err)

	doc, reader, err := svc.Open(ctx, stored.CID)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, stored.CID, doc.CID)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestOpenUnknownCID(t *testing.T) {
	svc, _, _ := newDocumentFixture(t)

	_, _, err := svc.Open(context.Background(), "QmUnknown")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSweepOrphansKeepsReferencedFiles(t *testing.T) {
	svc, _, dir := newDocumentFixture(t)
	ctx := context.Background()

	student := &model.User{Address: "100001", Role: model.RoleStudent}
	stored, err := svc.Store(ctx, student, "Transcript", "t.pdf", "application/pdf", bytes.NewReader([]byte("keep me")))
	require.NoError(t, err)

	// Файл без записи в хранилище — сирота
	orphan := filepath.Join(dir, "123-deadbeef.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("junk"), 0o644))

	removed, err := svc.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, statErr := os.Stat(orphan)
	assert.True(t, os.IsNotExist(statErr))

	_, statErr = os.Stat(filepath.Join(dir, stored.StoredName))
	assert.NoError(t, statErr)
}
