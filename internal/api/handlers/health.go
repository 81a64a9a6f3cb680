// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/arlo-viewer/internal/config"
)

const (
	statusOK       = "ok"
	statusFail     = "fail"
	statusDegraded = "degraded"
)

// DirChecker — проверка доступности директории записей.
type DirChecker interface {
	CheckReadable() error
}

// CameraHealthChecker — состояние API управления камерами по данным dephealth.
type CameraHealthChecker interface {
	CameraAPIHealthy() (healthy, known bool)
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	dir     DirChecker
	// camera — nil, если мониторинг зависимостей не настроен
	camera CameraHealthChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dir DirChecker, camera CameraHealthChecker) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dir:     dir,
		camera:  camera,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "arlo-viewer",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Недоступная директория записей — 503; недоступное API управления
// камерами — degraded с кодом 200 (записи продолжают отдаваться).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK

	fsCheck := h.checkRecordingsDir()
	if fsCheck["status"] != statusOK {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	cameraCheck := h.checkCameraAPI()
	if cameraCheck["status"] != statusOK && overallStatus != statusFail {
		overallStatus = statusDegraded
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "arlo-viewer",
		"checks": map[string]any{
			"recordings_dir": fsCheck,
			"camera_api":     cameraCheck,
		},
	})
}

// checkRecordingsDir проверяет доступность директории записей на чтение.
func (h *HealthHandler) checkRecordingsDir() map[string]any {
	if err := h.dir.CheckReadable(); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория записей недоступна: " + err.Error(),
		}
	}
	return map[string]any{"status": statusOK}
}

// checkCameraAPI возвращает состояние API управления камерами.
func (h *HealthHandler) checkCameraAPI() map[string]any {
	if h.camera == nil {
		return map[string]any{
			"status":  statusOK,
			"message": "Проверка не настроена",
		}
	}

	healthy, known := h.camera.CameraAPIHealthy()
	switch {
	case !known:
		return map[string]any{
			"status":  statusOK,
			"message": "Ожидание первой проверки",
		}
	case !healthy:
		return map[string]any{
			"status":  statusFail,
			"message": "API управления камерами недоступно",
		}
	default:
		return map[string]any{"status": statusOK}
	}
}
