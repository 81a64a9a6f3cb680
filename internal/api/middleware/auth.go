// auth.go — сессионная аутентификация по cookie с JWT.
//
// POST /login при верном пароле выдаёт cookie с JWT (HS256, sub=viewer,
// exp). Middleware проверяет подпись и срок действия токена.
// Публичные пути (логин, миниатюры, health, metrics) — без аутентификации.
// Браузер без сессии перенаправляется на форму входа, API-клиент
// получает 401.
package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySubject — ключ для sub из JWT в контексте запроса.
const ContextKeySubject contextKey = "jwt_subject"

const (
	// SessionSubject — sub сессионного токена.
	SessionSubject = "viewer"
	// DefaultCookieName — имя cookie по умолчанию.
	DefaultCookieName = "arlo_auth"
	// sessionIssuer — iss сессионного токена.
	sessionIssuer = "arlo-viewer"
)

// SessionAuthConfig — параметры сессионной аутентификации.
type SessionAuthConfig struct {
	// Пароль входа (пустой — аутентификация отключена, NewSessionAuth не вызывается)
	Password string
	// Секрет подписи HS256; пустой — генерируется случайный
	// (сессии не переживают перезапуск)
	Secret string
	// Имя cookie
	CookieName string
	// Срок действия токена
	TokenTTL time.Duration
	// Выдавать cookie с флагом Secure (при TLS)
	Secure bool
	// Точные пути без аутентификации
	PublicPaths []string
	// Префиксы путей без аутентификации
	PublicPrefixes []string
	// Страница входа для браузеров (пустая — всегда 401)
	LoginPath string
}

// SessionAuth — выдача и проверка сессионных токенов.
type SessionAuth struct {
	password   []byte
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	public     map[string]struct{}
	prefixes   []string
	loginPath  string
	logger     *slog.Logger

	// now — источник времени (подменяется в тестах)
	now func() time.Time
}

// NewSessionAuth создаёт сессионную аутентификацию.
func NewSessionAuth(cfg SessionAuthConfig, logger *slog.Logger) (*SessionAuth, error) {
	if cfg.Password == "" {
		return nil, errors.New("пароль входа не задан")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("некорректный срок действия токена: %s", cfg.TokenTTL)
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("генерация секрета подписи: %w", err)
		}
		logger.Warn("Секрет подписи сессий не задан, сгенерирован случайный: сессии сбросятся при перезапуске")
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return &SessionAuth{
		password:   []byte(cfg.Password),
		secret:     secret,
		cookieName: cookieName,
		ttl:        cfg.TokenTTL,
		secure:     cfg.Secure,
		public:     public,
		prefixes:   cfg.PublicPrefixes,
		loginPath:  cfg.LoginPath,
		logger:     logger.With(slog.String("component", "session_auth")),
		now:        time.Now,
	}, nil
}

// CheckPassword сравнивает пароль за постоянное время.
func (a *SessionAuth) CheckPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), a.password) == 1
}

// IssueCookie создаёт cookie с новым сессионным токеном.
func (a *SessionAuth) IssueCookie() (*http.Cookie, error) {
	now := a.now()
	expires := now.Add(a.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   SessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("подпись сессионного токена: %w", err)
	}

	return &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClearCookie возвращает cookie, удаляющую сессию.
func (a *SessionAuth) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Validate проверяет сессионный токен и возвращает sub.
func (a *SessionAuth) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("невалидный токен")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject != SessionSubject {
		return "", errors.New("неверный sub в токене")
	}
	return subject, nil
}

// isPublic проверяет, доступен ли путь без аутентификации.
func (a *SessionAuth) isPublic(path string) bool {
	if _, ok := a.public[path]; ok {
		return true
	}
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AcceptsHTML сообщает, что запрос пришёл из браузера (Accept: text/html).
func AcceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// deny отвечает на запрос без валидной сессии: GET/HEAD из браузера
// перенаправляется на страницу входа, остальное — 401.
func (a *SessionAuth) deny(w http.ResponseWriter, r *http.Request, message string) {
	if a.loginPath != "" && AcceptsHTML(r) &&
		(r.Method == http.MethodGet || r.Method == http.MethodHead) {
		http.Redirect(w, r, a.loginPath, http.StatusFound)
		return
	}
	apierrors.Unauthorized(w, message)
}

// Middleware возвращает HTTP middleware сессионной аутентификации.
// Без валидной cookie вызывает deny; sub помещается в контекст запроса.
func (a *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(a.cookieName)
			if err != nil || cookie.Value == "" {
				a.deny(w, r, "Требуется вход")
				return
			}

			subject, err := a.Validate(cookie.Value)
			if err != nil {
				a.logger.Debug("Сессионный токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				a.deny(w, r, "Невалидная или просроченная сессия")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext извлекает sub из контекста запроса.
// Возвращает пустую строку, если sub не найден.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}
