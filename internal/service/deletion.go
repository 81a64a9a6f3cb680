package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
)

// DeletionService — удаление записи по запросу пользователя.
type DeletionService struct {
	store  *filestore.FileStore
	logger *slog.Logger
}

// NewDeletionService создаёт сервис удаления.
func NewDeletionService(store *filestore.FileStore, logger *slog.Logger) *DeletionService {
	return &DeletionService{
		store:  store,
		logger: logger.With(slog.String("component", "deletion")),
	}
}

// Delete удаляет запись и её миниатюру.
//
// Отсутствие записи — ошибка 404, ошибка удаления — 500.
// Миниатюра удаляется только после успешного удаления записи;
// её отсутствие или ошибка удаления вызывающему не сообщаются.
// Лог ffmpeg не удаляется (его удалит retention-очистка).
func (s *DeletionService) Delete(name string) *OpError {
	// Stat отсекает небезопасные имена и директории до удаления
	if _, err := s.store.Stat(name); err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return classify(err, "Запись", name)
	}

	if err := s.store.Remove(name); err != nil {
		s.logger.Error("Ошибка удаления записи",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		opErr := classify(err, "Запись", name)
		if opErr.StatusCode != http.StatusNotFound {
			opErr.Message = fmt.Sprintf("Ошибка удаления записи %s", name)
		}
		return opErr
	}

	s.logger.Info("Запись удалена", slog.String("filename", name))

	thumb := filename.ThumbnailName(name)
	removed, err := s.store.RemoveIfExists(thumb)
	switch {
	case err != nil:
		s.logger.Warn("Ошибка удаления миниатюры",
			slog.String("filename", thumb),
			slog.String("error", err.Error()),
		)
	case removed:
		s.logger.Debug("Миниатюра удалена", slog.String("filename", thumb))
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	return nil
}
