// serve.go — команда запуска HTTP-сервера.
package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bigkaa/arlo-viewer/internal/api/handlers"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
	"github.com/bigkaa/arlo-viewer/internal/camera"
	"github.com/bigkaa/arlo-viewer/internal/config"
	"github.com/bigkaa/arlo-viewer/internal/server"
	"github.com/bigkaa/arlo-viewer/internal/service"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCore()
			if err != nil {
				return err
			}
			return runServe(cmd, c)
		},
	}
}

func runServe(cmd *cobra.Command, c *core) error {
	cfg, logger := c.cfg, c.logger
	ctx := cmd.Context()

	logger.Info("arlo-viewer запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("recordings_dir", c.store.DataDir()),
		slog.String("retention", c.retention.Retention().String()),
		slog.Int("camera_aliases", c.aliases.Len()),
		slog.Bool("auth", cfg.AuthEnabled()),
	)

	// Директория записей может появиться позже (монтирование тома):
	// не фатально, /health/ready вернёт 503
	if err := c.store.CheckReadable(); err != nil {
		logger.Warn("Директория записей недоступна", slog.String("error", err.Error()))
	} else if usage, err := getDiskUsage(cfg.RecordingsDir); err == nil {
		logger.Info("Ёмкость тома записей",
			slog.Int64("total_bytes", usage.Total),
			slog.Int64("available_bytes", usage.Available),
		)
	}

	// 1. Сервисы записей
	playback := service.NewPlaybackService(c.store, logger)
	deletion := service.NewDeletionService(c.store, logger)

	// 2. HLS-трансляции (директорию создаёт подсистема трансляции)
	streamRoot, err := filestore.New(cfg.StreamDir)
	if err != nil {
		return fmt.Errorf("ошибка инициализации директории трансляций: %w", err)
	}
	stream := service.NewStreamService(streamRoot, logger)

	// 3. Клиент API управления камерами
	cameraClient, err := camera.New(cfg.CameraAPIURL, cfg.CameraAPITimeout, cfg.CameraStatusCacheTTL, logger)
	if err != nil {
		return fmt.Errorf("ошибка инициализации клиента камер: %w", err)
	}
	logger.Info("Клиент API управления камерами создан",
		slog.String("base_url", cameraClient.BaseURL()),
		slog.String("timeout", cfg.CameraAPITimeout.String()),
	)

	// 4. topologymetrics — мониторинг API управления камерами
	var cameraHealth handlers.CameraHealthChecker
	dephealthSvc, err := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		cfg.CameraAPIURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		cameraHealth = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("camera_api_url", cfg.CameraAPIURL),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 5. Handlers
	h := server.Handlers{
		Recordings: handlers.NewRecordingsHandler(c.catalog, playback, deletion, logger),
		Camera:     handlers.NewCameraHandler(cameraClient, logger),
		Health:     handlers.NewHealthHandler(c.store, cameraHealth),
		Stream:     handlers.NewStreamHandler(stream, logger),
	}

	// 6. Веб-интерфейс
	static, err := handlers.NewStaticHandler(cfg.StaticDir)
	if err != nil {
		return fmt.Errorf("AV_STATIC_DIR: %w", err)
	}
	if static != nil {
		h.Static = static
		logger.Info("Раздача веб-интерфейса включена", slog.String("static_dir", cfg.StaticDir))
	}

	// 7. Сессионная аутентификация
	var middlewares []func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		auth, authErr := middleware.NewSessionAuth(middleware.SessionAuthConfig{
			Password:       cfg.AuthPassword,
			Secret:         cfg.AuthSecret,
			CookieName:     cfg.AuthCookieName,
			TokenTTL:       cfg.AuthTokenTTL,
			Secure:         cfg.TLSEnabled(),
			PublicPaths:    server.PublicPaths,
			PublicPrefixes: server.PublicPrefixes,
			LoginPath:      server.LoginPath,
		}, logger)
		if authErr != nil {
			return fmt.Errorf("ошибка настройки аутентификации: %w", authErr)
		}
		h.Auth = handlers.NewAuthHandler(auth, logger)
		middlewares = append(middlewares, auth.Middleware())
		logger.Info("Сессионная аутентификация включена",
			slog.String("cookie", cfg.AuthCookieName),
			slog.String("token_ttl", cfg.AuthTokenTTL.String()),
		)
	} else {
		logger.Warn("AV_AUTH_PASSWORD не задан, запуск без аутентификации")
	}

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, server.NewRouter(h, logger, middlewares...))
	runErr := srv.Run(ctx)

	// --- Остановка фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		return runErr
	}
	logger.Info("arlo-viewer остановлен")
	return nil
}
