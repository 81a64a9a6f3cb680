// recordings.go — HTTP handlers записей: каталог, видео, миниатюры, удаление.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/domain/model"
	"github.com/bigkaa/arlo-viewer/internal/service"
)

// deleteResponse — тело ответа успешного удаления.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RecordingsHandler — обработчик endpoints записей.
type RecordingsHandler struct {
	catalog  *service.CatalogService
	playback *service.PlaybackService
	deletion *service.DeletionService
	logger   *slog.Logger
}

// NewRecordingsHandler создаёт обработчик endpoints записей.
func NewRecordingsHandler(
	catalog *service.CatalogService,
	playback *service.PlaybackService,
	deletion *service.DeletionService,
	logger *slog.Logger,
) *RecordingsHandler {
	return &RecordingsHandler{
		catalog:  catalog,
		playback: playback,
		deletion: deletion,
		logger:   logger.With(slog.String("component", "recordings_handler")),
	}
}

// ListRecordings обрабатывает GET /api/recordings.
// Возвращает JSON-массив записей, новые первыми.
func (h *RecordingsHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка построения каталога записей",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка чтения директории записей")
		return
	}
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ServeVideo обрабатывает GET /api/video/{filename}.
// Поддерживает Range requests (206).
func (h *RecordingsHandler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(r, "filename")
	if !ok {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}
	if opErr := h.playback.ServeVideo(w, r, name); opErr != nil {
		writeOpError(w, opErr)
	}
}

// ServeThumbnail обрабатывает GET /api/thumbnail/{filename}.
func (h *RecordingsHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(r, "filename")
	if !ok {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}
	if opErr := h.playback.ServeThumbnail(w, r, name); opErr != nil {
		writeOpError(w, opErr)
	}
}

// DeleteRecording обрабатывает DELETE /api/recordings/{filename}.
func (h *RecordingsHandler) DeleteRecording(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(r, "filename")
	if !ok {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}
	if opErr := h.deletion.Delete(name); opErr != nil {
		writeOpError(w, opErr)
		return
	}

	// Пустой subject — аутентификация отключена
	h.logger.Info("Удаление записи по запросу",
		slog.String("filename", name),
		slog.String("subject", middleware.SubjectFromContext(r.Context())),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "File deleted successfully",
	})
}
