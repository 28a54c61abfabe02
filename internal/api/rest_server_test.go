package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/annel0/starforge/internal/auth"
	"github.com/annel0/starforge/internal/level"
	"github.com/annel0/starforge/internal/platform"
	"github.com/annel0/starforge/internal/store"
)

// Prometheus-мидлварь регистрирует метрики в глобальном реестре,
// поэтому сервер для тестов пакета строится ровно один раз.
var (
	testOnce    sync.Once
	testServer  *RestServer
	testService *store.Service
)

const testAdminPassword = "test-admin-pass"

func testAPI(t *testing.T) (*RestServer, *store.Service) {
	t.Helper()
	testOnce.Do(func() {
		hash, err := auth.HashPassword(testAdminPassword)
		if err != nil {
			t.Fatalf("Ошибка хеширования пароля: %v", err)
		}
		testService = store.NewService(store.NewMemoryLevelRepo(), nil, platform.NewMemoryPublisher())
		testServer = NewRestServer(Config{
			Service: testService,
			Admin:   auth.AdminAccount{Username: "admin", PasswordHash: hash},
		})
	})
	return testServer, testService
}

func saveLevel(t *testing.T, service *store.Service, name string) string {
	t.Helper()
	doc, err := service.CreateFromTemplate(level.TemplateSkirmish, level.LevelSettings{Name: name})
	if err != nil {
		t.Fatalf("Ошибка создания уровня: %v", err)
	}
	id, err := service.Save(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Ошибка сохранения уровня: %v", err)
	}
	return id
}

func doRequest(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	server, _ := testAPI(t)

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Ошибка сериализации тела запроса: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func adminToken(t *testing.T) string {
	t.Helper()
	rec := doRequest(t, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "admin", Password: testAdminPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("Вход администратора не удался: %d %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("Пустой токен после входа")
	}
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Неожиданный статус: %v", body["status"])
	}
}

func TestListLevelsNewestFirst(t *testing.T) {
	_, service := testAPI(t)
	older := saveLevel(t, service, "первый")
	newer := saveLevel(t, service, "второй")

	rec := doRequest(t, http.MethodGet, "/api/levels", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("Ожидался успешный ответ: %s", resp.Message)
	}

	var data struct {
		Levels []level.Summary `json:"levels"`
		Total  int             `json:"total"`
	}
	raw, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("Ошибка разбора списка: %v", err)
	}
	if data.Total < 2 {
		t.Fatalf("Ожидалось не меньше двух уровней, получено %d", data.Total)
	}

	idxOlder, idxNewer := -1, -1
	for i, s := range data.Levels {
		switch s.ID {
		case older:
			idxOlder = i
		case newer:
			idxNewer = i
		}
	}
	if idxOlder == -1 || idxNewer == -1 {
		t.Fatal("Сохранённые уровни не попали в список")
	}
	if idxNewer > idxOlder {
		t.Error("Свежие уровни должны идти первыми")
	}
}

func TestGetLevel(t *testing.T) {
	_, service := testAPI(t)
	id := saveLevel(t, service, "карточка")

	rec := doRequest(t, http.MethodGet, "/api/levels/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    level.Document `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Ошибка разбора ответа: %v", err)
	}
	if resp.Data.ID != id {
		t.Errorf("Вернулся не тот уровень: %s != %s", resp.Data.ID, id)
	}
	if resp.Data.Settings.Name != "карточка" {
		t.Errorf("Настройки уровня потерялись: %q", resp.Data.Settings.Name)
	}
}

func TestGetLevelNotFound(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/api/levels/no-such-level", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Ожидался статус 404, получен %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	rec := doRequest(t, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Ожидался статус 401, получен %d", rec.Code)
	}

	rec = doRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Запрос без пароля должен давать 400, получен %d", rec.Code)
	}
}

func TestAdminDeleteLevel(t *testing.T) {
	_, service := testAPI(t)
	id := saveLevel(t, service, "на удаление")
	token := adminToken(t)

	// Без токена — 401.
	rec := doRequest(t, http.MethodDelete, "/api/admin/levels/"+id, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Без токена ожидался 401, получен %d", rec.Code)
	}

	// Токен без прав администратора — 403.
	userToken, err := auth.GenerateToken("viewer", false)
	if err != nil {
		t.Fatalf("Ошибка генерации токена: %v", err)
	}
	rec = doRequest(t, http.MethodDelete, "/api/admin/levels/"+id, userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Без прав администратора ожидался 403, получен %d", rec.Code)
	}

	// Админский токен удаляет уровень.
	rec = doRequest(t, http.MethodDelete, "/api/admin/levels/"+id, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := service.Load(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Уровень должен быть удален, получено: %v", err)
	}

	// Повторное удаление — 404.
	rec = doRequest(t, http.MethodDelete, "/api/admin/levels/"+id, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Повторное удаление должно давать 404, получен %d", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	token := adminToken(t)

	rec := doRequest(t, http.MethodGet, "/api/admin/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("Ожидался успешный ответ: %s", resp.Message)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Неожиданный формат статистики: %T", resp.Data)
	}
	if _, ok := data["server"]; !ok {
		t.Error("Статистика должна содержать раздел server")
	}
	if _, ok := data["levels"]; !ok {
		t.Error("Статистика должна содержать раздел levels")
	}
}

func TestServerInfo(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/api/server", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ожидался статус 200, получен %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Неожиданный формат ответа: %T", resp.Data)
	}
	if data["version"] == "" || data["status"] != "running" {
		t.Errorf("Неожиданная информация о сервере: %v", data)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := doRequest(t, http.MethodOptions, "/api/levels", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Preflight должен давать 204, получен %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Отсутствует заголовок CORS")
	}
}
