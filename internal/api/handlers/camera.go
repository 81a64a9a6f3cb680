// camera.go — проксирование API управления камерами.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/camera"
)

// CameraHandler — обработчик endpoints управления камерами.
// Ответы API управления камерами передаются клиенту без изменений.
type CameraHandler struct {
	client *camera.Client
	logger *slog.Logger
}

// NewCameraHandler создаёт обработчик endpoints управления камерами.
func NewCameraHandler(client *camera.Client, logger *slog.Logger) *CameraHandler {
	return &CameraHandler{
		client: client,
		logger: logger.With(slog.String("component", "camera_handler")),
	}
}

// Status обрабатывает GET /api/cameras/status.
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Status(r.Context())
	h.write(w, resp, err)
}

// Arm обрабатывает POST /api/camera/{serial}/arm.
func (h *CameraHandler) Arm(w http.ResponseWriter, r *http.Request) {
	h.serialCall(w, r, h.client.Arm)
}

// Disarm обрабатывает POST /api/camera/{serial}/disarm.
func (h *CameraHandler) Disarm(w http.ResponseWriter, r *http.Request) {
	h.serialCall(w, r, h.client.Disarm)
}

// StreamStart обрабатывает POST /api/camera/{serial}/stream/start.
func (h *CameraHandler) StreamStart(w http.ResponseWriter, r *http.Request) {
	h.serialCall(w, r, h.client.StreamStart)
}

// StreamStop обрабатывает POST /api/camera/{serial}/stream/stop.
func (h *CameraHandler) StreamStop(w http.ResponseWriter, r *http.Request) {
	h.serialCall(w, r, h.client.StreamStop)
}

// StreamStatus обрабатывает GET /api/camera/{serial}/stream/status.
func (h *CameraHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	h.serialCall(w, r, h.client.StreamStatus)
}

func (h *CameraHandler) serialCall(
	w http.ResponseWriter,
	r *http.Request,
	call func(context.Context, string) (*camera.Response, error),
) {
	serial, ok := pathParam(r, "serial")
	if !ok {
		apierrors.ValidationError(w, "Некорректный серийный номер камеры")
		return
	}
	resp, err := call(r.Context(), serial)
	h.write(w, resp, err)
}

// write передаёт ответ API клиенту или записывает ошибку.
func (h *CameraHandler) write(w http.ResponseWriter, resp *camera.Response, err error) {
	switch {
	case errors.Is(err, camera.ErrInvalidSerial):
		apierrors.ValidationError(w, "Некорректный серийный номер камеры")
		return
	case err != nil:
		h.logger.Warn("Запрос к API управления камерами не выполнен",
			slog.String("error", err.Error()),
		)
		apierrors.CameraAPIError(w, "API управления камерами недоступно")
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
