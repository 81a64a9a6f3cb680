// Пакет model — доменные модели arlo-viewer.
// Recording — запись камеры на диске, CatalogEntry — её проекция
// для ответа API. Метаданные нигде не хранятся отдельно от файловой
// системы: каждая выдача каталога заново выводит их из имени файла и stat.
package model

import (
	"time"
)

// Container — формат контейнера видеозаписи.
type Container string

const (
	// ContainerMP4 — MPEG-4
	ContainerMP4 Container = "mp4"
	// ContainerMKV — Matroska
	ContainerMKV Container = "mkv"
)

// ContentType возвращает MIME-тип контейнера.
func (c Container) ContentType() string {
	if c == ContainerMKV {
		return "video/x-matroska"
	}
	return "video/mp4"
}

// Identity — идентичность записи, выведенная из имени файла.
// Нулевое значение (Parsed == false) означает, что имя не соответствует
// соглашению arlo-<SERIAL>-<YYYYMMDD>-<HHMMSS>.<ext>.
type Identity struct {
	// Parsed — имя файла распознано
	Parsed bool
	// Serial — серийный номер камеры
	Serial string
	// CapturedAt — время съёмки (без часового пояса, как в имени файла)
	CapturedAt time.Time
	// Container — формат контейнера
	Container Container
}

// Timestamp возвращает время съёмки в формате "YYYY-MM-DD HH:MM:SS".
func (id Identity) Timestamp() string {
	if !id.Parsed {
		return ""
	}
	return id.CapturedAt.Format(time.DateTime)
}

// Recording — видеофайл в директории записей вместе с данными stat.
type Recording struct {
	// Filename — имя файла, уникальный ключ в директории
	Filename string
	// Size — размер в байтах
	Size int64
	// ModTime — время модификации файла
	ModTime time.Time
	// Identity — результат разбора имени файла
	Identity Identity
}

// CatalogEntry — элемент ответа GET /api/recordings.
type CatalogEntry struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	// Timestamp — время съёмки из имени файла, либо mtime в ISO-8601
	Timestamp string    `json:"timestamp"`
	ModTime   time.Time `json:"mtime"`
	// Camera — отображаемое имя камеры (alias, serial или "unknown")
	Camera string `json:"camera"`
}
