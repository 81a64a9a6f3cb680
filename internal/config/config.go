// Пакет config — загрузка и валидация конфигурации arlo-viewer
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации arlo-viewer.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Директория записей камер
	RecordingsDir string
	// Срок хранения записей
	Retention time.Duration
	// Путь к YAML-файлу с алиасами камер (ключ CameraAliases, опционально)
	AliasesFile string
	// Максимальное число одновременных stat при построении каталога
	StatConcurrency int
	// Корень HLS-трансляций: <StreamDir>/<serial>/<file>
	StreamDir string
	// Директория веб-интерфейса (пустая — статика не раздаётся)
	StaticDir string

	// Базовый URL API управления камерами
	CameraAPIURL string
	// Таймаут запросов к API управления камерами
	CameraAPITimeout time.Duration
	// Время жизни кэша статуса камер (0 — без кэша)
	CameraStatusCacheTTL time.Duration

	// Пароль входа (пустой — аутентификация отключена)
	AuthPassword string
	// Секрет подписи сессионных токенов (пустой — случайный при старте)
	AuthSecret string
	// Имя cookie сессии
	AuthCookieName string
	// Срок действия сессионного токена
	AuthTokenTTL time.Duration

	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string

	// Таймауты HTTP-сервера. WriteTimeout = 0 — без ограничения
	// (долгие видеопотоки)
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Имя вершины графа в метриках topologymetrics
	ServiceID string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
}

// AuthEnabled сообщает, включена ли аутентификация.
func (c *Config) AuthEnabled() bool {
	return c.AuthPassword != ""
}

// TLSEnabled сообщает, настроен ли TLS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// AV_PORT — порт HTTP-сервера (по умолчанию 3003)
	port, err := getEnvInt("AV_PORT", 3003)
	if err != nil {
		return nil, fmt.Errorf("AV_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("AV_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// AV_RECORDINGS_DIR — обязательный
	cfg.RecordingsDir, err = getEnvRequired("AV_RECORDINGS_DIR")
	if err != nil {
		return nil, err
	}

	// AV_RETENTION_DAYS — срок хранения в днях (по умолчанию 7)
	days, err := getEnvInt("AV_RETENTION_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("AV_RETENTION_DAYS: %w", err)
	}
	if days <= 0 {
		return nil, fmt.Errorf("AV_RETENTION_DAYS: значение должно быть положительным, получено %d", days)
	}
	cfg.Retention = time.Duration(days) * 24 * time.Hour

	// AV_ALIASES_FILE — алиасы камер (опционально; ошибка загрузки не фатальна)
	cfg.AliasesFile = getEnvDefault("AV_ALIASES_FILE", "")

	// AV_STAT_CONCURRENCY — параллелизм stat (по умолчанию 16)
	cfg.StatConcurrency, err = getEnvInt("AV_STAT_CONCURRENCY", 16)
	if err != nil {
		return nil, fmt.Errorf("AV_STAT_CONCURRENCY: %w", err)
	}
	if cfg.StatConcurrency <= 0 {
		return nil, fmt.Errorf("AV_STAT_CONCURRENCY: значение должно быть положительным, получено %d", cfg.StatConcurrency)
	}

	// AV_STREAM_DIR — корень HLS-трансляций (по умолчанию /tmp/arlo-stream)
	cfg.StreamDir = getEnvDefault("AV_STREAM_DIR", "/tmp/arlo-stream")

	// AV_STATIC_DIR — веб-интерфейс (опционально)
	cfg.StaticDir = getEnvDefault("AV_STATIC_DIR", "")

	// AV_CAMERA_API_URL — API управления камерами (по умолчанию http://localhost:5000)
	cfg.CameraAPIURL = getEnvDefault("AV_CAMERA_API_URL", "http://localhost:5000")
	if u, parseErr := url.Parse(cfg.CameraAPIURL); parseErr != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("AV_CAMERA_API_URL: некорректный URL %q", cfg.CameraAPIURL)
	}

	// AV_CAMERA_API_TIMEOUT — таймаут запросов (по умолчанию 10s)
	cfg.CameraAPITimeout, err = getEnvDuration("AV_CAMERA_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_CAMERA_API_TIMEOUT: %w", err)
	}

	// AV_CAMERA_STATUS_CACHE_TTL — кэш статуса камер (по умолчанию 2s, 0 отключает)
	cfg.CameraStatusCacheTTL, err = getEnvDuration("AV_CAMERA_STATUS_CACHE_TTL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_CAMERA_STATUS_CACHE_TTL: %w", err)
	}
	if cfg.CameraStatusCacheTTL < 0 {
		return nil, fmt.Errorf("AV_CAMERA_STATUS_CACHE_TTL: значение не может быть отрицательным")
	}

	// AV_AUTH_* — сессионная аутентификация (отключена без пароля)
	cfg.AuthPassword = getEnvDefault("AV_AUTH_PASSWORD", "")
	cfg.AuthSecret = getEnvDefault("AV_AUTH_SECRET", "")
	cfg.AuthCookieName = getEnvDefault("AV_AUTH_COOKIE_NAME", "arlo_auth")
	cfg.AuthTokenTTL, err = getEnvDuration("AV_AUTH_TOKEN_TTL", 365*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("AV_AUTH_TOKEN_TTL: %w", err)
	}
	if cfg.AuthTokenTTL <= 0 {
		return nil, fmt.Errorf("AV_AUTH_TOKEN_TTL: значение должно быть положительным")
	}

	// AV_TLS_CERT / AV_TLS_KEY — задаются только вместе
	cfg.TLSCert = getEnvDefault("AV_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("AV_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("AV_TLS_CERT и AV_TLS_KEY должны быть заданы вместе")
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("AV_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("AV_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("AV_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// AV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_SHUTDOWN_TIMEOUT: %w", err)
	}

	// AV_SERVICE_ID — имя вершины графа (по умолчанию arlo-viewer)
	cfg.ServiceID = getEnvDefault("AV_SERVICE_ID", "arlo-viewer")

	// AV_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("AV_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// AV_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию arlo)
	cfg.DephealthGroup = getEnvDefault("AV_DEPHEALTH_GROUP", "arlo")

	// AV_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AV_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AV_LOG_LEVEL: %w", err)
	}

	// AV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AV_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 2s, 10s, 8760h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
