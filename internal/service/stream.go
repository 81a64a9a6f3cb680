// stream.go — отдача HLS-трансляций камер.
//
// Плейлисты и сегменты пишет подсистема трансляции в
// <AV_STREAM_DIR>/<serial>/<file>; сервис их только читает.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
)

// Content-Type файлов HLS.
const (
	ContentTypePlaylist = "application/vnd.apple.mpegurl"
	ContentTypeSegment  = "video/mp2t"
)

// StreamContentType возвращает Content-Type файла HLS по расширению.
// ok == false для неподдерживаемых типов.
func StreamContentType(name string) (string, bool) {
	switch {
	case strings.HasSuffix(name, ".m3u8"):
		return ContentTypePlaylist, true
	case strings.HasSuffix(name, ".ts"):
		return ContentTypeSegment, true
	default:
		return "", false
	}
}

// StreamService — отдача плейлистов и сегментов HLS.
type StreamService struct {
	root   *filestore.FileStore
	logger *slog.Logger
}

// NewStreamService создаёт сервис трансляций над корнем root.
func NewStreamService(root *filestore.FileStore, logger *slog.Logger) *StreamService {
	return &StreamService{
		root:   root,
		logger: logger.With(slog.String("component", "stream")),
	}
}

// ServeFile отдаёт файл трансляции камеры serial.
//
// Порядок проверок: небезопасные serial или имя → 400, файл
// отсутствует → 404, расширение не .m3u8 и не .ts → 400.
// Ответ не кэшируется: плейлист переписывается каждые несколько секунд.
func (s *StreamService) ServeFile(w http.ResponseWriter, r *http.Request, serial, name string) *OpError {
	if err := filename.Validate(serial); err != nil {
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return classify(err, "Трансляция", serial)
	}
	if err := filename.Validate(name); err != nil {
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return classify(err, "Трансляция", name)
	}

	dir, err := filestore.New(filepath.Join(s.root.DataDir(), serial))
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return classify(err, "Трансляция", serial)
	}
	if !dir.Exists(name) {
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return &OpError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл трансляции %s/%s не найден", serial, name),
			Err:        ErrNotFound,
		}
	}

	contentType, ok := StreamContentType(name)
	if !ok {
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return &OpError{
			StatusCode: http.StatusBadRequest,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Неподдерживаемый тип файла трансляции: %q", name),
			Err:        ErrUnsupportedStreamFile,
		}
	}

	file, err := dir.Open(name)
	if err != nil {
		// Сегмент мог быть удалён между проверкой и открытием
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return classify(err, "Трансляция", name)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла трансляции",
			slog.String("serial", serial),
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("stream", "error").Inc()
		return classify(err, "Трансляция", name)
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, stat.ModTime(), file)
	middleware.OperationsTotal.WithLabelValues("stream", "success").Inc()
	return nil
}
