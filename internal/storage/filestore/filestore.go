// Пакет filestore — операции с файлами в директории записей камер.
// Директория наполняется внешней подсистемой захвата; здесь файлы
// только перечисляются, читаются и удаляются. Каждое имя перед
// подстановкой в путь проверяется filename.Validate.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
)

// FileStore — доступ к файлам директории записей.
type FileStore struct {
	// dataDir — директория записей (AV_RECORDINGS_DIR)
	dataDir string
}

// New создаёт FileStore. Директория не создаётся: её наличие
// проверяется при каждом перечислении.
func New(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		return nil, errors.New("директория записей не задана")
	}
	return &FileStore{dataDir: filepath.Clean(dataDir)}, nil
}

// List возвращает имена записей директории (только .mp4/.mkv)
// в порядке перечисления (по имени, как os.ReadDir).
// Ошибка чтения директории возвращается вызывающему коду.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", fs.dataDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filename.IsRecording(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Stat возвращает информацию о файле.
// Отсутствие файла проверяется через errors.Is(err, fs.ErrNotExist).
func (fs *FileStore) Stat(name string) (os.FileInfo, error) {
	if err := filename.Validate(name); err != nil {
		return nil, err
	}

	info, err := os.Stat(fs.FullPath(name))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return info, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(name string) (*os.File, error) {
	if err := filename.Validate(name); err != nil {
		return nil, err
	}

	f, err := os.Open(fs.FullPath(name))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}
	return f, nil
}

// Remove удаляет файл. В отличие от RemoveIfExists, отсутствие
// файла возвращается как ошибка (errors.Is(err, fs.ErrNotExist)).
func (fs *FileStore) Remove(name string) error {
	if err := filename.Validate(name); err != nil {
		return err
	}

	if err := os.Remove(fs.FullPath(name)); err != nil {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// RemoveIfExists удаляет файл. Возвращает (false, nil), если файла уже нет.
func (fs *FileStore) RemoveIfExists(name string) (bool, error) {
	err := fs.Remove(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Exists проверяет существование обычного файла.
func (fs *FileStore) Exists(name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}

// FullPath возвращает абсолютный путь к файлу в директории записей.
// Имя не проверяется — используйте только с проверенными именами.
func (fs *FileStore) FullPath(name string) string {
	return filepath.Join(fs.dataDir, name)
}

// DataDir возвращает путь к директории записей.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// CheckReadable проверяет, что директория записей существует и читается.
// Используется readiness probe.
func (fs *FileStore) CheckReadable() error {
	f, err := os.Open(fs.dataDir)
	if err != nil {
		return fmt.Errorf("директория записей недоступна: %w", err)
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("директория записей не читается: %w", err)
	}
	return nil
}
