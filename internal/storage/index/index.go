// Пакет index — каталог записей камер.
//
// Каталог не хранится: каждый вызов заново перечисляет директорию,
// выполняет stat каждого файла и разбирает имя. Stat выполняется
// параллельно (не более concurrency одновременно), результат
// собирается и сортируется только в конце.
//
// Перечисление и stat не атомарны: файл, удалённый между ними
// (например, retention-очисткой), молча исключается из результата.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/arlo-viewer/internal/domain/model"
	"github.com/bigkaa/arlo-viewer/internal/storage/alias"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
)

// DefaultConcurrency — число одновременных stat по умолчанию.
const DefaultConcurrency = 16

// isoLayout — формат mtime для записей без распознанного имени
// (ISO-8601 UTC с миллисекундами).
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Index — построитель каталога записей.
type Index struct {
	store       *filestore.FileStore
	aliases     *alias.Resolver
	concurrency int
	logger      *slog.Logger
}

// New создаёт Index. concurrency <= 0 заменяется на DefaultConcurrency.
func New(store *filestore.FileStore, aliases *alias.Resolver, concurrency int, logger *slog.Logger) *Index {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if aliases == nil {
		aliases = alias.New(nil)
	}
	return &Index{
		store:       store,
		aliases:     aliases,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "index")),
	}
}

// Scan перечисляет записи директории вместе с размером, mtime и
// разобранным именем. Порядок — порядок перечисления директории.
// Ошибка чтения директории возвращается; ошибка stat отдельного
// файла исключает файл из результата.
func (idx *Index) Scan(ctx context.Context) ([]model.Recording, error) {
	names, err := idx.store.List()
	if err != nil {
		return nil, err
	}

	// Каждая горутина пишет только в свой слот
	slots := make([]*model.Recording, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := idx.store.Stat(name)
			if err != nil {
				idx.logger.Debug("Файл исчез до stat, пропускается",
					slog.String("filename", name),
					slog.String("error", err.Error()),
				)
				return nil
			}

			slots[i] = &model.Recording{
				Filename: name,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
				Identity: filename.Parse(name),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("перечисление записей прервано: %w", err)
	}

	recordings := make([]model.Recording, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			recordings = append(recordings, *rec)
		}
	}
	return recordings, nil
}

// List возвращает каталог, отсортированный по mtime (новые первые).
// При равных mtime сохраняется порядок перечисления директории.
func (idx *Index) List(ctx context.Context) ([]model.CatalogEntry, error) {
	recordings, err := idx.Scan(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(recordings, func(i, j int) bool {
		return recordings[i].ModTime.After(recordings[j].ModTime)
	})

	entries := make([]model.CatalogEntry, 0, len(recordings))
	for _, rec := range recordings {
		entries = append(entries, idx.entry(rec))
	}
	return entries, nil
}

// entry строит элемент каталога из записи.
func (idx *Index) entry(rec model.Recording) model.CatalogEntry {
	timestamp := rec.Identity.Timestamp()
	if timestamp == "" {
		timestamp = rec.ModTime.UTC().Format(isoLayout)
	}

	return model.CatalogEntry{
		Filename:  rec.Filename,
		Size:      rec.Size,
		Timestamp: timestamp,
		ModTime:   rec.ModTime,
		Camera:    idx.aliases.Resolve(rec.Identity.Serial),
	}
}
