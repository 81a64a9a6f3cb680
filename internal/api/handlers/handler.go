// Пакет handlers — HTTP-обработчики arlo-viewer, сгруппированные
// по доменам: записи, камеры, вход, health.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/service"
)

// writeJSON записывает ответ в формате JSON.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOpError записывает ошибку операции сервисного слоя.
func writeOpError(w http.ResponseWriter, opErr *service.OpError) {
	apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
}

// pathParam возвращает декодированный параметр пути.
// "a%2Fb.mp4" превращается в "a/b.mp4" и отклоняется проверкой имени.
func pathParam(r *http.Request, key string) (string, bool) {
	value, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		return "", false
	}
	return value, true
}
