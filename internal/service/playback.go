// playback.go — отдача видеозаписей с поддержкой Range.
//
// Range разбирается снисходительно: некорректные границы не приводят
// к 416, а заменяются и ограничиваются размером файла. Поэтому
// http.ServeContent здесь не используется (он отвечает 416 на
// диапазон за пределами файла).
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
)

// playbackBytesTotal — объём отданных видеоданных.
var playbackBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "av_playback_bytes_total",
	Help: "Общий объём отданных видеоданных в байтах",
}, []string{"kind"})

// ByteRange — разрешённый диапазон байт [Start, End] включительно.
type ByteRange struct {
	Start int64
	End   int64
}

// Length возвращает длину диапазона.
func (br ByteRange) Length() int64 {
	return br.End - br.Start + 1
}

// ContentRange возвращает значение заголовка Content-Range.
func (br ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size)
}

// ParseRange разбирает заголовок Range вида "bytes=start-end" для файла
// размера size. ok == false означает, что отдаётся весь файл: заголовок
// пуст, единица не bytes или файл пустой.
//
// Правила:
//   - start без числа → 0, end без числа → size-1
//   - start < 0 → 0, end >= size → size-1
//   - start > end → start = end (один байт)
//
// Из каждой границы берутся ведущие цифры: "bytes=0-50,100-150"
// даёт 0-50.
func ParseRange(header string, size int64) (ByteRange, bool) {
	set, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || size <= 0 {
		return ByteRange{}, false
	}

	startStr, endStr, _ := strings.Cut(set, "-")

	start, ok := leadingInt(startStr)
	if !ok {
		start = 0
	}
	end, ok := leadingInt(endStr)
	if !ok {
		end = size - 1
	}

	if start < 0 {
		start = 0
	}
	if end >= size {
		end = size - 1
	}
	if start > end {
		start = end
	}
	return ByteRange{Start: start, End: end}, true
}

// leadingInt разбирает ведущие десятичные цифры строки после пробелов.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t")
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:n], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		// Переполнение: число заведомо больше размера файла
		return math.MaxInt64, true
	}
	return v, err == nil
}

// PlaybackService — отдача видеозаписей и миниатюр.
type PlaybackService struct {
	store  *filestore.FileStore
	logger *slog.Logger
}

// NewPlaybackService создаёт сервис отдачи файлов.
func NewPlaybackService(store *filestore.FileStore, logger *slog.Logger) *PlaybackService {
	return &PlaybackService{
		store:  store,
		logger: logger.With(slog.String("component", "playback")),
	}
}

// ServeVideo отдаёт запись целиком (200) или диапазон байт (206).
// Ошибка возвращается до записи заголовков ответа.
func (s *PlaybackService) ServeVideo(w http.ResponseWriter, r *http.Request, name string) *OpError {
	// 1. Открываем файл (имя проверяется FileStore)
	file, err := s.store.Open(name)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("play", "error").Inc()
		return classify(err, "Запись", name)
	}
	defer file.Close()

	// 2. Размер берём у открытого дескриптора
	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("play", "error").Inc()
		return &OpError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
			Err:        err,
		}
	}
	if stat.IsDir() {
		middleware.OperationsTotal.WithLabelValues("play", "error").Inc()
		return &OpError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Запись %s не найдена", name),
			Err:        ErrNotFound,
		}
	}
	size := stat.Size()

	// 3. Заголовки
	h := w.Header()
	h.Set("Content-Type", filename.ContainerOf(name).ContentType())
	h.Set("Accept-Ranges", "bytes")

	var (
		body   io.Reader = file
		length           = size
		status           = http.StatusOK
		kind             = "full"
	)
	if br, ok := ParseRange(r.Header.Get("Range"), size); ok {
		body = io.NewSectionReader(file, br.Start, br.Length())
		length = br.Length()
		status = http.StatusPartialContent
		kind = "partial"
		h.Set("Content-Range", br.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	middleware.OperationsTotal.WithLabelValues("play", "success").Inc()

	if r.Method == http.MethodHead {
		return nil
	}

	// 4. Потоковая передача без буферизации файла целиком
	written, err := io.CopyN(w, body, length)
	playbackBytesTotal.WithLabelValues(kind).Add(float64(written))
	if err != nil {
		// Заголовки уже отправлены: клиент обычно закрыл соединение при перемотке
		s.logger.Debug("Передача записи прервана",
			slog.String("filename", name),
			slog.Int64("written", written),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.logger.Debug("Запись отдана",
		slog.String("filename", name),
		slog.Int("status", status),
		slog.Int64("bytes", written),
	)
	return nil
}

// ServeThumbnail отдаёт миниатюру через http.ServeContent.
// Content-Type определяется по расширению (.jpg → image/jpeg).
func (s *PlaybackService) ServeThumbnail(w http.ResponseWriter, r *http.Request, name string) *OpError {
	file, err := s.store.Open(name)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("thumbnail", "error").Inc()
		return classify(err, "Миниатюра", name)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		middleware.OperationsTotal.WithLabelValues("thumbnail", "error").Inc()
		return &OpError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Миниатюра %s не найдена", name),
			Err:        ErrNotFound,
		}
	}

	http.ServeContent(w, r, name, stat.ModTime(), file)
	middleware.OperationsTotal.WithLabelValues("thumbnail", "success").Inc()
	return nil
}
