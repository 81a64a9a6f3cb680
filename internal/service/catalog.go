package service

import (
	"context"
	"log/slog"

	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/domain/model"
	"github.com/bigkaa/arlo-viewer/internal/storage/index"
)

// CatalogService — построение каталога записей.
// Перед каждым построением выполняется retention-очистка.
type CatalogService struct {
	retention *RetentionService
	idx       *index.Index
	logger    *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
// retention == nil отключает очистку перед построением.
func NewCatalogService(retention *RetentionService, idx *index.Index, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		retention: retention,
		idx:       idx,
		logger:    logger.With(slog.String("component", "catalog")),
	}
}

// List выполняет очистку и возвращает каталог (новые записи первые).
// Ошибка очистки логируется и не прерывает построение каталога;
// ошибка чтения директории при построении возвращается.
func (s *CatalogService) List(ctx context.Context) ([]model.CatalogEntry, error) {
	if s.retention != nil {
		if _, err := s.retention.Sweep(ctx); err != nil {
			s.logger.Warn("Очистка перед построением каталога не выполнена",
				slog.String("error", err.Error()),
			)
		}
	}

	entries, err := s.idx.List(ctx)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("list", "error").Inc()
		return nil, err
	}

	middleware.OperationsTotal.WithLabelValues("list", "success").Inc()
	middleware.RecordingsTotal.Set(float64(len(entries)))
	return entries, nil
}
