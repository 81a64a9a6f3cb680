// retention.go — retention-очистка устаревших записей.
//
// Запись устаревает, когда now - mtime > retention. Для каждой
// устаревшей записи удаляются:
//  1. основной файл (.mp4/.mkv)
//  2. миниатюра (<base>.jpg), если есть
//  3. лог ffmpeg (ffmpeg-<base без "arlo-">.log), если есть
//
// Удаления независимы и выполняются параллельно; ошибка одного
// удаления логируется и не прерывает остальные.
//
// Sweep вызывается синхронно перед каждым построением каталога.
// Отдельного фонового таймера нет: для очистки без обращений к
// каталогу используется команда `arlo-viewer sweep`.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/arlo-viewer/internal/domain/model"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
	"github.com/bigkaa/arlo-viewer/internal/storage/index"
)

// DefaultRetention — срок хранения записей по умолчанию.
const DefaultRetention = 7 * 24 * time.Hour

// Prometheus метрики retention
var (
	// retentionSweepsTotal — количество запусков очистки.
	retentionSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_retention_sweeps_total",
		Help: "Общее количество запусков retention-очистки",
	})

	// retentionRemovedTotal — количество устаревших записей.
	retentionRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_retention_removed_total",
		Help: "Общее количество записей, удалённых retention-очисткой",
	})

	// retentionErrorsTotal — ошибки удаления по типу файла.
	retentionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "av_retention_errors_total",
		Help: "Общее количество ошибок удаления при retention-очистке",
	}, []string{"kind"})

	// retentionDurationSeconds — длительность очистки.
	retentionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "av_retention_duration_seconds",
		Help:    "Длительность retention-очистки в секундах",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// Scanned — количество просмотренных записей
	Scanned int
	// Removed — количество устаревших записей (независимо от исхода удаления)
	Removed int
	// Errors — количество ошибок удаления основного файла
	Errors int
	// SidecarErrors — количество ошибок удаления миниатюр и логов
	SidecarErrors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// RetentionService — сервис retention-очистки.
type RetentionService struct {
	store       *filestore.FileStore
	idx         *index.Index
	retention   time.Duration
	concurrency int
	logger      *slog.Logger

	// now — источник времени (подменяется в тестах)
	now func() time.Time

	mu sync.Mutex // защита от параллельного запуска Sweep
}

// NewRetentionService создаёт сервис очистки.
// retention <= 0 заменяется на DefaultRetention.
func NewRetentionService(
	store *filestore.FileStore,
	idx *index.Index,
	retention time.Duration,
	concurrency int,
	logger *slog.Logger,
) *RetentionService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if concurrency <= 0 {
		concurrency = index.DefaultConcurrency
	}
	return &RetentionService{
		store:       store,
		idx:         idx,
		retention:   retention,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "retention")),
		now:         time.Now,
	}
}

// Retention возвращает срок хранения.
func (rs *RetentionService) Retention() time.Duration {
	return rs.retention
}

// Sweep выполняет один проход очистки.
// Ошибка возвращается только при невозможности перечислить директорию;
// ошибки удаления отдельных файлов учитываются в SweepResult.
func (rs *RetentionService) Sweep(ctx context.Context) (*SweepResult, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	recordings, err := rs.idx.Scan(ctx)
	if err != nil {
		rs.logger.Error("Ошибка перечисления записей для очистки",
			slog.String("error", err.Error()),
		)
		return result, err
	}
	result.Scanned = len(recordings)

	cutoff := rs.now().Add(-rs.retention)

	var primaryErrors, sidecarErrors atomic.Int64

	// Контекст группы не используется: ошибка одного удаления
	// не должна отменять остальные
	var g errgroup.Group
	g.SetLimit(rs.concurrency)

	for _, rec := range recordings {
		if !rec.ModTime.Before(cutoff) {
			continue
		}
		result.Removed++

		g.Go(func() error {
			primaryFailed, sidecarFailed := rs.removeArtifact(rec)
			if primaryFailed {
				primaryErrors.Add(1)
			}
			sidecarErrors.Add(int64(sidecarFailed))
			return nil
		})
	}
	_ = g.Wait()

	result.Errors = int(primaryErrors.Load())
	result.SidecarErrors = int(sidecarErrors.Load())
	result.Duration = time.Since(start)

	retentionSweepsTotal.Inc()
	retentionRemovedTotal.Add(float64(result.Removed))
	retentionDurationSeconds.Observe(result.Duration.Seconds())

	level := slog.LevelDebug
	if result.Removed > 0 || result.Errors > 0 || result.SidecarErrors > 0 {
		level = slog.LevelInfo
	}
	rs.logger.Log(ctx, level, "Очистка завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("removed", result.Removed),
		slog.Int("errors", result.Errors),
		slog.Int("sidecar_errors", result.SidecarErrors),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// removeArtifact удаляет основной файл записи и её sidecar-файлы.
// Sidecar-файлы удаляются независимо от исхода удаления основного.
func (rs *RetentionService) removeArtifact(rec model.Recording) (primaryFailed bool, sidecarFailed int) {
	if _, err := rs.store.RemoveIfExists(rec.Filename); err != nil {
		rs.logger.Error("Ошибка удаления устаревшей записи",
			slog.String("filename", rec.Filename),
			slog.String("error", err.Error()),
		)
		retentionErrorsTotal.WithLabelValues("primary").Inc()
		primaryFailed = true
	} else {
		rs.logger.Info("Удалена устаревшая запись",
			slog.String("filename", rec.Filename),
			slog.Time("mtime", rec.ModTime),
		)
	}

	sidecars := [...]struct {
		kind string
		name string
	}{
		{"thumbnail", filename.ThumbnailName(rec.Filename)},
		{"log", filename.LogSidecarName(rec.Filename)},
	}
	for _, sc := range sidecars {
		removed, err := rs.store.RemoveIfExists(sc.name)
		if err != nil {
			rs.logger.Warn("Ошибка удаления sidecar-файла",
				slog.String("filename", sc.name),
				slog.String("kind", sc.kind),
				slog.String("error", err.Error()),
			)
			retentionErrorsTotal.WithLabelValues(sc.kind).Inc()
			sidecarFailed++
			continue
		}
		if removed {
			rs.logger.Debug("Удалён sidecar-файл",
				slog.String("filename", sc.name),
				slog.String("kind", sc.kind),
			)
		}
	}
	return primaryFailed, sidecarFailed
}
