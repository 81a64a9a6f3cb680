// Пакет filename — соглашение об именовании файлов записей камер.
//
// Формат записи: arlo-<SERIAL>-<YYYYMMDD>-<HHMMSS>.<mp4|mkv>
// Сопутствующие файлы (sidecar) связаны с записью только через имя:
//   - миниатюра: <base>.jpg
//   - лог ffmpeg: ffmpeg-<base без "arlo-">.log
//
// Все функции чистые, без обращения к диску.
package filename

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bigkaa/arlo-viewer/internal/domain/model"
)

const (
	// Prefix — префикс имени записи.
	Prefix = "arlo-"
	// ThumbnailExt — расширение миниатюры.
	ThumbnailExt = ".jpg"
	// logPrefix — префикс лога ffmpeg.
	logPrefix = "ffmpeg-"
	// logExt — расширение лога ffmpeg.
	logExt = ".log"
	// stampLayout — дата и время в имени файла.
	stampLayout = "20060102-150405"
)

// ErrUnsafe — имя файла содержит обход пути или разделитель.
var ErrUnsafe = errors.New("недопустимое имя файла")

var (
	recordingRE = regexp.MustCompile(`^arlo-([^-]+)-(\d{8})-(\d{6})\.(mp4|mkv)$`)
	videoExtRE  = regexp.MustCompile(`\.(mp4|mkv)$`)
)

// Parse извлекает серийный номер, время съёмки и контейнер из имени файла.
// Несоответствие соглашению — не ошибка: возвращается Identity{Parsed: false}.
// Имена с несуществующей датой (например, 20251340) тоже считаются нераспознанными.
func Parse(name string) model.Identity {
	m := recordingRE.FindStringSubmatch(name)
	if m == nil {
		return model.Identity{}
	}

	capturedAt, err := time.Parse(stampLayout, m[2]+"-"+m[3])
	if err != nil {
		return model.Identity{}
	}

	return model.Identity{
		Parsed:     true,
		Serial:     m[1],
		CapturedAt: capturedAt,
		Container:  model.Container(m[4]),
	}
}

// Format собирает имя файла записи. Обратная операция к Parse.
func Format(serial string, capturedAt time.Time, container model.Container) string {
	return fmt.Sprintf("%s%s-%s.%s", Prefix, serial, capturedAt.Format(stampLayout), container)
}

// IsRecording проверяет, что имя файла имеет расширение видеозаписи.
func IsRecording(name string) bool {
	return strings.HasSuffix(name, ".mp4") || strings.HasSuffix(name, ".mkv")
}

// Base возвращает имя записи без расширения .mp4/.mkv.
func Base(name string) string {
	return videoExtRE.ReplaceAllString(name, "")
}

// ThumbnailName возвращает имя миниатюры для записи.
// Пример: arlo-A1-20251219-140803.mp4 → arlo-A1-20251219-140803.jpg
func ThumbnailName(name string) string {
	return Base(name) + ThumbnailExt
}

// LogSidecarName возвращает имя лога ffmpeg для записи.
// Первое вхождение "arlo-" удаляется из базового имени:
// arlo-A1-20251219-140803.mp4 → ffmpeg-A1-20251219-140803.log
//
// Правило повторяет именование логов подсистемы управления камерами.
// Если оно изменится, очистка логов перестанет находить файлы без ошибок.
func LogSidecarName(name string) string {
	return logPrefix + strings.Replace(Base(name), Prefix, "", 1) + logExt
}

// ContainerOf определяет контейнер по расширению имени файла.
// Для .mkv возвращает mkv, для остального — mp4.
func ContainerOf(name string) model.Container {
	if strings.HasSuffix(name, ".mkv") {
		return model.ContainerMKV
	}
	return model.ContainerMP4
}

// Validate проверяет, что имя файла безопасно для подстановки в путь:
// непустое, без "..", без разделителей пути и без NUL.
func Validate(name string) error {
	if name == "" ||
		strings.Contains(name, "..") ||
		strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafe, name)
	}
	return nil
}
