package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupRecordingsDir создаёт директорию записей и задаёт AV_RECORDINGS_DIR.
func setupRecordingsDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("AV_RECORDINGS_DIR", dir)
	t.Setenv("AV_LOG_LEVEL", "error")
	return dir
}

func writeRecording(t *testing.T, dir, name string, mtime time.Time) {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o640); err != nil {
		t.Fatalf("Ошибка создания файла %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

// execute запускает корневую команду с аргументами и возвращает stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "sweep", "list", "stats"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("подкоманда %s не найдена", name)
		}
	}
}

func TestListCmd(t *testing.T) {
	dir := setupRecordingsDir(t)
	now := time.Now()
	writeRecording(t, dir, "arlo-CAM1-20240115-143022.mp4", now.Add(-time.Hour))
	writeRecording(t, dir, "arlo-CAM1-20240101-000000.mp4", now.Add(-30*24*time.Hour))

	// Без очистки устаревшая запись остаётся в каталоге
	out, err := execute(t, "list", "--no-sweep")
	if err != nil {
		t.Fatalf("list --no-sweep: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("Ошибка декодирования %q: %v", out, err)
	}
	if len(entries) != 2 {
		t.Errorf("записей %d, ожидалось 2", len(entries))
	}

	out, err = execute(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	entries = nil
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["filename"] != "arlo-CAM1-20240115-143022.mp4" {
		t.Errorf("каталог после очистки: %v", entries)
	}
}

func TestSweepCmd(t *testing.T) {
	dir := setupRecordingsDir(t)
	t.Setenv("AV_RETENTION_DAYS", "1")
	writeRecording(t, dir, "arlo-CAM1-20240101-000000.mkv", time.Now().Add(-48*time.Hour))
	writeRecording(t, dir, "arlo-CAM1-20240101-000000.jpg", time.Now().Add(-48*time.Hour))

	out, err := execute(t, "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	var result sweepOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Ошибка декодирования %q: %v", out, err)
	}
	if result.Scanned != 1 || result.Removed != 1 || result.Errors != 0 {
		t.Errorf("результат: %+v", result)
	}
	for _, name := range []string{"arlo-CAM1-20240101-000000.mkv", "arlo-CAM1-20240101-000000.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s должен быть удалён", name)
		}
	}
}

func TestStatsCmd(t *testing.T) {
	dir := setupRecordingsDir(t)
	writeRecording(t, dir, "arlo-CAM1-20240115-143022.mp4", time.Now())

	out, err := execute(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats statsOutput
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Recordings != 1 || stats.RecordingBytes != 4 {
		t.Errorf("статистика: %+v", stats)
	}
	if stats.DiskTotal <= 0 {
		t.Errorf("ёмкость тома: %d", stats.DiskTotal)
	}
}

func TestCommands_ConfigError(t *testing.T) {
	t.Setenv("AV_RECORDINGS_DIR", "")

	if _, err := execute(t, "list"); err == nil {
		t.Error("ожидалась ошибка конфигурации без AV_RECORDINGS_DIR")
	}
}

func TestGetDiskUsage(t *testing.T) {
	usage, err := getDiskUsage(t.TempDir())
	if err != nil {
		t.Fatalf("getDiskUsage: %v", err)
	}
	if usage.Total <= 0 || usage.Available < 0 || usage.Used != usage.Total-usage.Available {
		t.Errorf("ёмкость: %+v", usage)
	}

	if _, err := getDiskUsage(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ожидалась ошибка для отсутствующего пути")
	}
}
