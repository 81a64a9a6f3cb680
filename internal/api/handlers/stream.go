// stream.go — HTTP handler HLS-трансляций.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/service"
)

// StreamHandler — отдача плейлистов и сегментов HLS.
type StreamHandler struct {
	stream *service.StreamService
	logger *slog.Logger
}

// NewStreamHandler создаёт обработчик трансляций.
func NewStreamHandler(stream *service.StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		stream: stream,
		logger: logger.With(slog.String("component", "stream_handler")),
	}
}

// ServeFile обрабатывает GET /api/stream/{serial}/{file}.
func (h *StreamHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	serial, ok := pathParam(r, "serial")
	if !ok {
		apierrors.ValidationError(w, "Некорректный серийный номер")
		return
	}
	name, ok := pathParam(r, "file")
	if !ok {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}

	if opErr := h.stream.ServeFile(w, r, serial, name); opErr != nil {
		// Плеер запрашивает сегменты, которые ещё не записаны
		h.logger.Debug("Файл трансляции не отдан",
			slog.String("serial", serial),
			slog.String("filename", name),
			slog.Int("status", opErr.StatusCode),
		)
		writeOpError(w, opErr)
	}
}
