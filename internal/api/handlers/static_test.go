package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStaticHandler(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<h1>viewer</h1>", time.Now())
	writeFile(t, dir, "app.js", "console.log(1)", time.Now())
	if err := os.Mkdir(filepath.Join(dir, "assets"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "assets"), "style.css", "body{}", time.Now())

	h, err := NewStaticHandler(dir)
	if err != nil || h == nil {
		t.Fatalf("NewStaticHandler: %v", err)
	}

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "<h1>viewer</h1>"},
		{"/app.js", http.StatusOK, "console.log(1)"},
		{"/assets/style.css", http.StatusOK, "body{}"},
		{"/missing.js", http.StatusNotFound, ""},
		// Листинг директории без index.html не раздаётся
		{"/assets/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("тело %q", rec.Body.String())
			}
		})
	}
}

func TestNewStaticHandler_Config(t *testing.T) {
	if h, err := NewStaticHandler(""); h != nil || err != nil {
		t.Errorf("пустой путь: handler %v, ошибка %v", h, err)
	}

	if _, err := NewStaticHandler(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ожидалась ошибка для отсутствующей директории")
	}

	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStaticHandler(file); err == nil {
		t.Error("ожидалась ошибка для файла вместо директории")
	}
}
