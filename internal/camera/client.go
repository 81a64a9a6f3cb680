// Пакет camera — HTTP-клиент API управления камерами Arlo.
//
// API управления камерами — внешний сервис (по умолчанию
// http://localhost:5000): статус камер, постановка на охрану,
// запуск и остановка трансляции. Ответы API передаются вызывающему
// без изменений; ответ статуса камер кэшируется на короткий TTL.
package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики клиента.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "av_camera_api_requests_total",
		Help: "Общее количество запросов к API управления камерами",
	}, []string{"operation", "result"})

	statusCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_camera_status_cache_hits_total",
		Help: "Общее количество попаданий в кэш статуса камер",
	})
	statusCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "av_camera_status_cache_misses_total",
		Help: "Общее количество промахов кэша статуса камер",
	})
)

// maxResponseBody — максимальный размер читаемого ответа API.
const maxResponseBody = 1 << 20

// statusCacheKey — ключ кэша статуса камер.
const statusCacheKey = "status"

var (
	// ErrInvalidSerial — серийный номер содержит разделитель пути или "..".
	ErrInvalidSerial = errors.New("недопустимый серийный номер камеры")
	// ErrUnavailable — API управления камерами недоступно.
	ErrUnavailable = errors.New("API управления камерами недоступно")
)

// Response — ответ API управления камерами.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// armRequest — тело запроса постановки/снятия с охраны.
type armRequest struct {
	PIRTargetState              string `json:"PIRTargetState"`
	VideoMotionEstimationEnable bool   `json:"VideoMotionEstimationEnable"`
	AudioTargetState            string `json:"AudioTargetState"`
}

// Client — клиент API управления камерами.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// statusCache — nil, если кэширование отключено (TTL = 0)
	statusCache *expirable.LRU[string, *Response]
	logger      *slog.Logger
}

// New создаёт клиент.
// baseURL — базовый URL API (AV_CAMERA_API_URL).
// timeout — таймаут запроса (AV_CAMERA_API_TIMEOUT).
// statusTTL — время жизни кэша статуса (AV_CAMERA_STATUS_CACHE_TTL), 0 отключает кэш.
func New(baseURL string, timeout, statusTTL time.Duration, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("некорректный URL API управления камерами: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
			},
		},
		logger: logger.With(slog.String("component", "camera_client")),
	}
	if statusTTL > 0 {
		c.statusCache = expirable.NewLRU[string, *Response](1, nil, statusTTL)
	}
	return c, nil
}

// BaseURL возвращает базовый URL API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ValidateSerial проверяет серийный номер перед подстановкой в путь.
func ValidateSerial(serial string) error {
	if serial == "" || strings.Contains(serial, "..") || strings.ContainsAny(serial, "/\\?#%\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}
	return nil
}

// Status возвращает статус всех камер (GET /cameras/status).
// Успешные (200) ответы кэшируются.
func (c *Client) Status(ctx context.Context) (*Response, error) {
	if c.statusCache != nil {
		if resp, ok := c.statusCache.Get(statusCacheKey); ok {
			statusCacheHitsTotal.Inc()
			return resp, nil
		}
		statusCacheMissesTotal.Inc()
	}

	resp, err := c.do(ctx, "status", http.MethodGet, "/cameras/status", nil)
	if err != nil {
		return nil, err
	}
	if c.statusCache != nil && resp.StatusCode == http.StatusOK {
		c.statusCache.Add(statusCacheKey, resp)
	}
	return resp, nil
}

// Arm ставит камеру на охрану: детектор движения включён, звук выключен.
func (c *Client) Arm(ctx context.Context, serial string) (*Response, error) {
	return c.setArmState(ctx, "arm", serial, armRequest{
		PIRTargetState:              "Armed",
		VideoMotionEstimationEnable: true,
		AudioTargetState:            "Disarmed",
	})
}

// Disarm снимает камеру с охраны.
func (c *Client) Disarm(ctx context.Context, serial string) (*Response, error) {
	return c.setArmState(ctx, "disarm", serial, armRequest{
		PIRTargetState:              "Disarmed",
		VideoMotionEstimationEnable: false,
		AudioTargetState:            "Disarmed",
	})
}

// StreamStart запускает трансляцию камеры.
func (c *Client) StreamStart(ctx context.Context, serial string) (*Response, error) {
	return c.cameraCall(ctx, "stream_start", http.MethodPost, serial, "/stream/start", nil)
}

// StreamStop останавливает трансляцию камеры.
func (c *Client) StreamStop(ctx context.Context, serial string) (*Response, error) {
	return c.cameraCall(ctx, "stream_stop", http.MethodPost, serial, "/stream/stop", nil)
}

// StreamStatus возвращает состояние трансляции камеры.
func (c *Client) StreamStatus(ctx context.Context, serial string) (*Response, error) {
	return c.cameraCall(ctx, "stream_status", http.MethodGet, serial, "/stream/status", nil)
}

// setArmState отправляет состояние охраны (POST /camera/{serial}/arm).
// Постановка и снятие используют один endpoint.
func (c *Client) setArmState(ctx context.Context, op, serial string, state armRequest) (*Response, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("сериализация запроса %s: %w", op, err)
	}
	resp, err := c.cameraCall(ctx, op, http.MethodPost, serial, "/arm", body)
	if err == nil && c.statusCache != nil {
		// Статус камер изменился
		c.statusCache.Remove(statusCacheKey)
	}
	return resp, err
}

// cameraCall выполняет запрос к /camera/{serial}{suffix}.
func (c *Client) cameraCall(ctx context.Context, op, method, serial, suffix string, body []byte) (*Response, error) {
	if err := ValidateSerial(serial); err != nil {
		return nil, err
	}
	return c.do(ctx, op, method, "/camera/"+url.PathEscape(serial)+suffix, body)
}

// do выполняет запрос и читает ответ целиком (с ограничением размера).
// Ответ с любым HTTP-статусом возвращается без ошибки; ошибка —
// только при недоступности API.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*Response, error) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Warn("API управления камерами недоступно",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: чтение ответа %s: %w", ErrUnavailable, op, err)
	}

	result := "success"
	if httpResp.StatusCode >= 400 {
		result = "upstream_error"
	}
	requestsTotal.WithLabelValues(op, result).Inc()

	c.logger.Debug("Ответ API управления камерами",
		slog.String("operation", op),
		slog.Int("status", httpResp.StatusCode),
		slog.Int("bytes", len(data)),
	)

	return &Response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
