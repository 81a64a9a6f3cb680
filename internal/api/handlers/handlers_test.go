package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/camera"
	"github.com/bigkaa/arlo-viewer/internal/domain/model"
	"github.com/bigkaa/arlo-viewer/internal/service"
	"github.com/bigkaa/arlo-viewer/internal/storage/alias"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
	"github.com/bigkaa/arlo-viewer/internal/storage/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupRecordings создаёт директорию записей и обработчик над ней.
func setupRecordings(t *testing.T) (string, *RecordingsHandler) {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}
	logger := testLogger()
	idx := index.New(store, alias.New(map[string]string{"CAM1": "Крыльцо"}), 4, logger)
	retention := service.NewRetentionService(store, idx, 7*24*time.Hour, 4, logger)

	h := NewRecordingsHandler(
		service.NewCatalogService(retention, idx, logger),
		service.NewPlaybackService(store, logger),
		service.NewDeletionService(store, logger),
		logger,
	)
	return dir, h
}

func writeFile(t *testing.T, dir, name, content string, mtime time.Time) {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("Ошибка создания файла %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Ошибка установки mtime %s: %v", name, err)
	}
}

// recordingsRouter монтирует обработчик записей в chi.
func recordingsRouter(h *RecordingsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/recordings", h.ListRecordings)
	r.Delete("/api/recordings/{filename}", h.DeleteRecording)
	r.Get("/api/video/{filename}", h.ServeVideo)
	r.Get("/api/thumbnail/{filename}", h.ServeThumbnail)
	return r
}

// errorCode извлекает код ошибки из тела ответа.
func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("Ошибка декодирования тела ошибки: %v", err)
	}
	return resp.Error.Code
}

func TestListRecordings(t *testing.T) {
	dir, h := setupRecordings(t)
	now := time.Now()
	writeFile(t, dir, "arlo-CAM1-20240115-143022.mp4", "older", now.Add(-2*time.Hour))
	writeFile(t, dir, "arlo-CAM2-20240116-080000.mkv", "newer", now.Add(-time.Hour))
	writeFile(t, dir, "arlo-CAM1-20240115-143022.jpg", "thumb", now)
	writeFile(t, dir, "arlo-OLD-20230101-000000.mp4", "aged", now.Add(-8*24*time.Hour))

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var entries []model.CatalogEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("Ошибка декодирования: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("записей %d, ожидалось 2 (устаревшая удалена, миниатюра не в каталоге)", len(entries))
	}
	if entries[0].Filename != "arlo-CAM2-20240116-080000.mkv" || entries[0].Camera != "CAM2" {
		t.Errorf("первая запись: %+v", entries[0])
	}
	if entries[1].Camera != "Крыльцо" || entries[1].Timestamp != "2024-01-15 14:30:22" {
		t.Errorf("вторая запись: %+v", entries[1])
	}
	if _, err := os.Stat(filepath.Join(dir, "arlo-OLD-20230101-000000.mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Error("устаревшая запись должна быть удалена при построении каталога")
	}
}

func TestListRecordings_Empty(t *testing.T) {
	_, h := setupRecordings(t)

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("тело %q, ожидался пустой массив", body)
	}
}

func TestListRecordings_MissingDirectory(t *testing.T) {
	dir, h := setupRecordings(t)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("статус %d, ожидался 500", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "INTERNAL_ERROR" {
		t.Errorf("код ошибки %q", code)
	}
}

func TestServeVideo_Range(t *testing.T) {
	dir, h := setupRecordings(t)
	writeFile(t, dir, "arlo-CAM1-20240115-143022.mp4", "0123456789", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/video/arlo-CAM1-20240115-143022.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("статус %d, ожидался 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "2345" {
		t.Errorf("тело %q", rec.Body.String())
	}
}

func TestServeVideo_Errors(t *testing.T) {
	_, h := setupRecordings(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"отсутствует", "/api/video/arlo-CAM1-20240115-143022.mp4", http.StatusNotFound, "NOT_FOUND"},
		{"закодированный разделитель", "/api/video/" + url.PathEscape("../etc/passwd"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"двойная точка", "/api/video/..", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			recordingsRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if code := errorCode(t, rec.Body); code != tt.wantCode {
				t.Errorf("код %q, ожидался %q", code, tt.wantCode)
			}
		})
	}
}

func TestServeThumbnail(t *testing.T) {
	dir, h := setupRecordings(t)
	writeFile(t, dir, "arlo-CAM1-20240115-143022.jpg", "jpegdata", time.Now())

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/thumbnail/arlo-CAM1-20240115-143022.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}

	rec = httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/thumbnail/missing.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("статус %d, ожидался 404", rec.Code)
	}
}

func TestDeleteRecording(t *testing.T) {
	dir, h := setupRecordings(t)
	writeFile(t, dir, "arlo-CAM1-20240115-143022.mp4", "video", time.Now())
	writeFile(t, dir, "arlo-CAM1-20240115-143022.jpg", "thumb", time.Now())

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/api/recordings/arlo-CAM1-20240115-143022.mp4", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	var resp deleteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("success должен быть true")
	}
	for _, name := range []string{"arlo-CAM1-20240115-143022.mp4", "arlo-CAM1-20240115-143022.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s должен быть удалён", name)
		}
	}

	// Повторное удаление — 404
	rec = httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/api/recordings/arlo-CAM1-20240115-143022.mp4", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторное удаление: статус %d, ожидался 404", rec.Code)
	}
}

func TestDeleteRecording_Traversal(t *testing.T) {
	dir, h := setupRecordings(t)
	outside := filepath.Join(filepath.Dir(dir), "victim.mp4")
	writeFile(t, filepath.Dir(dir), "victim.mp4", "x", time.Now())
	t.Cleanup(func() { _ = os.Remove(outside) })

	rec := httptest.NewRecorder()
	recordingsRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/api/recordings/"+url.PathEscape("../victim.mp4"), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидался 400", rec.Code)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("файл вне директории записей не должен удаляться")
	}
}

// --- Управление камерами ---

func newCameraHandler(t *testing.T, handler http.HandlerFunc) (*CameraHandler, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := camera.New(srv.URL, time.Second, 0, testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания клиента: %v", err)
	}
	return NewCameraHandler(client, testLogger()), srv
}

func cameraRouter(h *CameraHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/cameras/status", h.Status)
	r.Post("/api/camera/{serial}/arm", h.Arm)
	r.Post("/api/camera/{serial}/disarm", h.Disarm)
	r.Post("/api/camera/{serial}/stream/start", h.StreamStart)
	r.Post("/api/camera/{serial}/stream/stop", h.StreamStop)
	r.Get("/api/camera/{serial}/stream/status", h.StreamStatus)
	return r
}

func TestCamera_Passthrough(t *testing.T) {
	var gotPath string
	h, _ := newCameraHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/camera/CAM1/stream/start" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"already streaming"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	tests := []struct {
		method     string
		path       string
		wantUp     string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/api/cameras/status", "GET /cameras/status", http.StatusOK, `{"ok":true}`},
		{http.MethodPost, "/api/camera/CAM1/arm", "POST /camera/CAM1/arm", http.StatusOK, `{"ok":true}`},
		{http.MethodPost, "/api/camera/CAM1/disarm", "POST /camera/CAM1/arm", http.StatusOK, `{"ok":true}`},
		{http.MethodPost, "/api/camera/CAM1/stream/start", "POST /camera/CAM1/stream/start", http.StatusConflict, `{"error":"already streaming"}`},
		{http.MethodPost, "/api/camera/CAM1/stream/stop", "POST /camera/CAM1/stream/stop", http.StatusOK, `{"ok":true}`},
		{http.MethodGet, "/api/camera/CAM1/stream/status", "GET /camera/CAM1/stream/status", http.StatusOK, `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			cameraRouter(h).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if gotPath != tt.wantUp {
				t.Errorf("запрос к API %q, ожидался %q", gotPath, tt.wantUp)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("тело %q, ожидалось %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestCamera_InvalidSerial(t *testing.T) {
	called := false
	h, _ := newCameraHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	cameraRouter(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/camera/"+url.PathEscape("../cameras")+"/arm", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус %d, ожидался 400", rec.Code)
	}
	if called {
		t.Error("API управления камерами не должно вызываться")
	}
}

func TestCamera_Unavailable(t *testing.T) {
	h, srv := newCameraHandler(t, func(w http.ResponseWriter, _ *http.Request) {})
	srv.Close()

	rec := httptest.NewRecorder()
	cameraRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cameras/status", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("статус %d, ожидался 502", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "CAMERA_API_ERROR" {
		t.Errorf("код %q", code)
	}
}

// --- Вход ---

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	auth, err := middleware.NewSessionAuth(middleware.SessionAuthConfig{
		Password: "s3cret",
		Secret:   "test-secret",
		TokenTTL: time.Hour,
	}, testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания SessionAuth: %v", err)
	}
	return NewAuthHandler(auth, testLogger())
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin_Success(t *testing.T) {
	h := newAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", url.Values{"password": {"s3cret"}}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("статус %d, ожидался 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.DefaultCookieName || cookies[0].Value == "" {
		t.Fatalf("cookie сессии не установлена: %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("cookie должна быть HttpOnly")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newAuthHandler(t)

	for _, form := range []url.Values{{"password": {"wrong"}}, {}} {
		rec := httptest.NewRecorder()
		h.Login(rec, postForm("/login", form))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("статус %d, ожидался 401", rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("cookie не должна устанавливаться")
		}
	}
}

func TestLogout(t *testing.T) {
	h := newAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("статус %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookie должна удаляться: %+v", cookies)
	}
}

func TestLoginForm(t *testing.T) {
	h := newAuthHandler(t)

	rec := httptest.NewRecorder()
	h.LoginForm(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d, ожидался 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<form method="POST" action="/login">`) ||
		!strings.Contains(body, `name="password"`) {
		t.Errorf("нет формы входа: %s", body)
	}
	if strings.Contains(body, "Incorrect password") {
		t.Error("сообщение об ошибке не должно показываться до попытки входа")
	}
}

func TestLogin_WrongPasswordBrowser(t *testing.T) {
	h := newAuthHandler(t)

	req := postForm("/login", url.Values{"password": {"wrong"}})
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус %d, ожидался 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, браузеру нужна форма", ct)
	}
	if !strings.Contains(rec.Body.String(), "Incorrect password") {
		t.Error("форма должна содержать сообщение о неверном пароле")
	}
}

// --- Health ---

type stubDir struct{ err error }

func (s stubDir) CheckReadable() error { return s.err }

type stubCamera struct{ healthy, known bool }

func (s stubCamera) CameraAPIHealthy() (bool, bool) { return s.healthy, s.known }

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(stubDir{}, nil)

	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("статус %d", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		dir        DirChecker
		camera     CameraHealthChecker
		wantStatus int
		wantState  string
	}{
		{"всё доступно", stubDir{}, stubCamera{healthy: true, known: true}, http.StatusOK, statusOK},
		{"без мониторинга", stubDir{}, nil, http.StatusOK, statusOK},
		{"первая проверка", stubDir{}, stubCamera{}, http.StatusOK, statusOK},
		{"API камер недоступно", stubDir{}, stubCamera{known: true}, http.StatusOK, statusDegraded},
		{"директория недоступна", stubDir{err: os.ErrNotExist}, stubCamera{known: true}, http.StatusServiceUnavailable, statusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.dir, tt.camera).HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("статус %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			var resp struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status %q, ожидался %q", resp.Status, tt.wantState)
			}
		})
	}
}
