package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ssdc-app/consent-backend/internal/controller"
	"github.com/ssdc-app/consent-backend/internal/model"
	"github.com/ssdc-app/consent-backend/internal/notify"
	"github.com/ssdc-app/consent-backend/internal/service"
	"github.com/ssdc-app/consent-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiFixture struct {
	router http.Handler
	clock  *clock.Mock
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	stores := testutil.NewStores(mock)
	logger := zap.NewNop()

	userService := service.NewUserService(stores.Users, stores.Sessions, mock, logger)
	documentService := service.NewDocumentService(stores.Documents, t.TempDir(), mock, logger)
	consentService := service.NewConsentService(stores.Requests, stores.Documents, stores.Users, notify.Nop{}, mock, logger)

	return &apiFixture{
		router: controller.NewRouter(userService, documentService, consentService, logger),
		clock:  mock,
	}
}

func (f *apiFixture) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// registerAndLogin регистрирует пользователя и возвращает (address, token)
func (f *apiFixture) registerAndLogin(t *testing.T, name, role string) (string, string) {
	t.Helper()

	rec := f.doJSON(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "password": "secret", "role": role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	address := decodeBody(t, rec)["user"].(map[string]interface{})["address"].(string)

	rec = f.doJSON(t, http.MethodPost, "/api/login", "", map[string]string{
		"name": name, "password": "secret", "role": role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeBody(t, rec)["token"].(string)

	return address, token
}

// upload загружает документ от имени студента
func (f *apiFixture) upload(t *testing.T, token, fieldName, fileName string, content []byte) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("fieldName", fieldName))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestAuthenticationRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.doJSON(t, http.MethodPost, "/api/requests", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.doJSON(t, http.MethodPost, "/api/requests", "bogus-token", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	f := newAPIFixture(t)

	f.registerAndLogin(t, "alice", model.RoleStudent)

	rec := f.doJSON(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "alice", "password": "other", "role": model.RoleStudent,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// Сквозной сценарий: организация запрашивает "Transcript" на 1 час,
// студент загружает документ и одобряет, организация читает байты,
// студент отзывает — доступ гаснет немедленно.
func TestConsentLifecycleEndToEnd(t *testing.T) {
	f := newAPIFixture(t)

	studentAddr, studentToken := f.registerAndLogin(t, "alice", model.RoleStudent)
	orgAddr, orgToken := f.registerAndLogin(t, "acme", model.RoleOrganization)

	// Организация создаёт заявку
	rec := f.doJSON(t, http.MethodPost, "/api/requests", orgToken, map[string]interface{}{
		"studentAddress":   studentAddr,
		"requesterAddress": orgAddr,
		"requesterName":    "ACME Corp",
		"fieldName":        "Transcript",
		"durationHours":    1,
		"note":             "enrollment verification",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	request := decodeBody(t, rec)["request"].(map[string]interface{})
	requestID := request["id"].(string)
	assert.Equal(t, model.RequestStatePending, request["state"])

	// Студент видит заявку
	rec = f.doJSON(t, http.MethodGet, "/api/requests/student/"+studentAddr, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	requests := decodeBody(t, rec)["requests"].([]interface{})
	require.Len(t, requests, 1)

	// Просмотр до grant'а запрещён
	rec = f.doJSON(t, http.MethodGet, "/api/view/"+requestID, orgToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Студент загружает Transcript
	content := []byte("%PDF-1.4 grades")
	f.upload(t, studentToken, "Transcript", "transcript.pdf", content)

	// Студент появился в выпадающем списке организаций
	rec = f.doJSON(t, http.MethodGet, "/api/students", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	students := decodeBody(t, rec)["students"].([]interface{})
	require.Len(t, students, 1)

	// Grant чужим пользователем — отказ
	rec = f.doJSON(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/grant", requestID), orgToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Grant владельцем
	rec = f.doJSON(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/grant", requestID), studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	granted := decodeBody(t, rec)["request"].(map[string]interface{})
	assert.Equal(t, model.RequestStateGranted, granted["state"])
	assert.NotEmpty(t, granted["dataCid"])
	assert.NotEmpty(t, granted["expiryTime"])

	// Организация читает байты документа
	rec = f.doJSON(t, http.MethodGet, "/api/view/"+requestID, orgToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")

	// Листинг организации декорирован именем файла
	rec = f.doJSON(t, http.MethodGet, "/api/requests/org/"+orgAddr, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orgRequests := decodeBody(t, rec)["requests"].([]interface{})
	require.Len(t, orgRequests, 1)
	assert.Equal(t, "transcript.pdf", orgRequests[0].(map[string]interface{})["originalName"])

	// Студент отзывает согласие
	rec = f.doJSON(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/revoke", requestID), studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Доступ гаснет немедленно, с внятным сообщением
	rec = f.doJSON(t, http.MethodGet, "/api/view/"+requestID, orgToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "revoked")
}

func TestViewAfterExpiry(t *testing.T) {
	f := newAPIFixture(t)

	studentAddr, studentToken := f.registerAndLogin(t, "alice", model.RoleStudent)
	_, orgToken := f.registerAndLogin(t, "acme", model.RoleOrganization)

	f.upload(t, studentToken, "Transcript", "transcript.pdf", []byte("data"))

	rec := f.doJSON(t, http.MethodPost, "/api/requests", orgToken, map[string]interface{}{
		"studentAddress": studentAddr,
		"fieldName":      "Transcript",
		"durationHours":  1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requestID := decodeBody(t, rec)["request"].(map[string]interface{})["id"].(string)

	rec = f.doJSON(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/grant", requestID), studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.doJSON(t, http.MethodGet, "/api/view/"+requestID, orgToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Срок истёк — без какого-либо revoke
	f.clock.Add(time.Hour + time.Minute)

	rec = f.doJSON(t, http.MethodGet, "/api/view/"+requestID, orgToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "expired")
}

func TestCreateRequestRequesterMismatch(t *testing.T) {
	f := newAPIFixture(t)

	studentAddr, _ := f.registerAndLogin(t, "alice", model.RoleStudent)
	_, orgToken := f.registerAndLogin(t, "acme", model.RoleOrganization)

	rec := f.doJSON(t, http.MethodPost, "/api/requests", orgToken, map[string]interface{}{
		"studentAddress":   studentAddr,
		"requesterAddress": "999999",
		"fieldName":        "Transcript",
		"durationHours":    1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadRequiresStudentRole(t *testing.T) {
	f := newAPIFixture(t)

	_, orgToken := f.registerAndLogin(t, "acme", model.RoleOrganization)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "x.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+orgToken)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
