package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/arlo-viewer/internal/storage/alias"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
	"github.com/bigkaa/arlo-viewer/internal/storage/index"
)

// testLogger — логгер, подавляющий вывод ниже ERROR.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv — тестовое окружение сервисного слоя.
type testEnv struct {
	dir   string
	store *filestore.FileStore
	idx   *index.Index
}

// setupTestEnv создаёт FileStore и Index во временной директории.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}
	idx := index.New(store, alias.New(map[string]string{"CAM1": "Крыльцо"}), 4, testLogger())

	return &testEnv{dir: dir, store: store, idx: idx}
}

// writeFile создаёт файл с содержимым data и заданным mtime.
func (e *testEnv) writeFile(t *testing.T, name string, data []byte, mtime time.Time) {
	t.Helper()

	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatalf("Ошибка создания файла %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Ошибка установки mtime %s: %v", name, err)
	}
}

// exists проверяет наличие файла в директории окружения.
func (e *testEnv) exists(name string) bool {
	_, err := os.Stat(filepath.Join(e.dir, name))
	return err == nil
}

// testPayload возвращает n байт с различимым содержимым.
func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
