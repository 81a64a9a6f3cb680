// Пакет service — бизнес-логика arlo-viewer: retention-очистка,
// каталог записей, отдача видео, миниатюр и HLS-трансляций,
// удаление записей.
package service

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/storage/filename"
)

// Sentinel-ошибки сервисного слоя.
var (
	// ErrInvalidFilename — имя файла содержит разделитель пути или "..".
	ErrInvalidFilename = errors.New("недопустимое имя файла")
	// ErrNotFound — файл отсутствует в директории записей.
	ErrNotFound = errors.New("файл не найден")
	// ErrUnsupportedStreamFile — файл трансляции не плейлист и не сегмент HLS.
	ErrUnsupportedStreamFile = errors.New("неподдерживаемый тип файла трансляции")
)

// OpError — ошибка операции над записью с HTTP-кодом.
// Err — исходная причина (ErrInvalidFilename, ErrNotFound или I/O ошибка).
type OpError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// classify переводит ошибку файлового хранилища в OpError.
// what — описание объекта для сообщения ("Запись", "Миниатюра").
func classify(err error, what, name string) *OpError {
	switch {
	case errors.Is(err, filename.ErrUnsafe):
		return &OpError{
			StatusCode: http.StatusBadRequest,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Недопустимое имя файла: %q", name),
			Err:        fmt.Errorf("%w: %w", ErrInvalidFilename, err),
		}
	case errors.Is(err, os.ErrNotExist):
		return &OpError{
			StatusCode: http.StatusNotFound,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("%s %s не найдена", what, name),
			Err:        fmt.Errorf("%w: %w", ErrNotFound, err),
		}
	default:
		return &OpError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeInternalError,
			Message:    fmt.Sprintf("Ошибка доступа к файлу %s", name),
			Err:        err,
		}
	}
}
