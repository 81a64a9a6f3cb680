// Пакет server — HTTP-сервер arlo-viewer с TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/api/handlers"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/config"
)

// LoginPath — страница входа, на которую перенаправляется браузер без сессии.
const LoginPath = "/login"

// Пути без сессионной аутентификации. Миниатюры открыты для ссылок
// из уведомлений.
var (
	PublicPaths    = []string{LoginPath, "/logout", "/metrics"}
	PublicPrefixes = []string{"/api/thumbnail/", "/health/"}
)

// Handlers — доменные обработчики, монтируемые в роутер.
type Handlers struct {
	Recordings *handlers.RecordingsHandler
	Camera     *handlers.CameraHandler
	Health     *handlers.HealthHandler
	// Stream — nil, если трансляции не раздаются
	Stream *handlers.StreamHandler
	// Auth — nil, если аутентификация отключена
	Auth *handlers.AuthHandler
	// Static — веб-интерфейс; nil, если AV_STATIC_DIR не задан
	Static http.Handler
}

// Server — HTTP-сервер arlo-viewer.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// NewRouter собирает chi-роутер со всеми маршрутами.
// middlewares применяются в порядке переданного среза, после
// request-id, логирования и метрик.
func NewRouter(h Handlers, logger *slog.Logger, middlewares ...func(http.Handler) http.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	for _, mw := range middlewares {
		router.Use(mw)
	}

	// JSON-ответ для неизвестных путей (наследуется подроутером /api)
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Ресурс не найден")
	})

	// Health и метрики
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Вход
	if h.Auth != nil {
		router.Get(LoginPath, h.Auth.LoginForm)
		router.Post(LoginPath, h.Auth.Login)
		router.Post("/logout", h.Auth.Logout)
	}

	router.Route("/api", func(r chi.Router) {
		// Записи
		r.Get("/recordings", h.Recordings.ListRecordings)
		r.Delete("/recordings/{filename}", h.Recordings.DeleteRecording)
		r.Get("/video/{filename}", h.Recordings.ServeVideo)
		r.Head("/video/{filename}", h.Recordings.ServeVideo)
		r.Get("/thumbnail/{filename}", h.Recordings.ServeThumbnail)

		// HLS-трансляции
		if h.Stream != nil {
			r.Get("/stream/{serial}/{file}", h.Stream.ServeFile)
		}

		// Управление камерами
		if h.Camera != nil {
			r.Get("/cameras/status", h.Camera.Status)
			r.Post("/camera/{serial}/arm", h.Camera.Arm)
			r.Post("/camera/{serial}/disarm", h.Camera.Disarm)
			r.Post("/camera/{serial}/stream/start", h.Camera.StreamStart)
			r.Post("/camera/{serial}/stream/stop", h.Camera.StreamStop)
			r.Get("/camera/{serial}/stream/status", h.Camera.StreamStatus)
		}
	})

	// Веб-интерфейс: всё, что не совпало с маршрутами выше
	if h.Static != nil {
		router.Handle("/*", h.Static)
	}

	return router
}

// New создаёт HTTP-сервер с готовым роутером.
func New(cfg *config.Config, logger *slog.Logger, handler http.Handler) *Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: cfg.HTTPReadTimeout,
		// 0 — без ограничения: длинные видео отдаются дольше любого разумного таймаута
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	if cfg.TLSEnabled() {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown с таймаутом
// AV_SHUTDOWN_TIMEOUT.
func (s *Server) Run(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSEnabled()),
		)

		var err error
		if s.cfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
