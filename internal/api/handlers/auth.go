// auth.go — вход и выход по паролю.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	apierrors "github.com/bigkaa/arlo-viewer/internal/api/errors"
	"github.com/bigkaa/arlo-viewer/internal/api/middleware"
)

// maxLoginForm — максимальный размер тела формы входа.
const maxLoginForm = 4 << 10

// AuthHandler — обработчик входа и выхода.
type AuthHandler struct {
	auth   *middleware.SessionAuth
	logger *slog.Logger
}

// NewAuthHandler создаёт обработчик входа и выхода.
func NewAuthHandler(auth *middleware.SessionAuth, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// LoginForm обрабатывает GET /login: HTML-форма входа.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	templ.Handler(LoginPage(false)).ServeHTTP(w, r)
}

// Login обрабатывает POST /login (поле формы password).
// При совпадении пароля устанавливает cookie сессии и перенаправляет на "/".
// Неверный пароль — 401: браузеру форма с сообщением, API-клиенту JSON.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginForm)
	if err := r.ParseForm(); err != nil {
		apierrors.ValidationError(w, "Некорректная форма входа")
		return
	}

	if !h.auth.CheckPassword(r.PostFormValue("password")) {
		h.logger.Warn("Неудачная попытка входа",
			slog.String("remote_addr", r.RemoteAddr),
		)
		if middleware.AcceptsHTML(r) {
			templ.Handler(LoginPage(true), templ.WithStatus(http.StatusUnauthorized)).ServeHTTP(w, r)
			return
		}
		apierrors.Unauthorized(w, "Неверный пароль")
		return
	}

	cookie, err := h.auth.IssueCookie()
	if err != nil {
		h.logger.Error("Ошибка выпуска сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка выпуска сессии")
		return
	}

	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout обрабатывает POST /logout: удаляет cookie сессии.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.auth.ClearCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
