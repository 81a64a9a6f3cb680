// login.go — HTML-страница входа для браузеров.
package handlers

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const loginPageHead = `<!DOCTYPE html>
<html><head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Security Login</title>
<style>
body { font-family: -apple-system, sans-serif; background: #1a1a1a; color: #e0e0e0;
       display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
.login-box { background: #2a2a2a; padding: 40px; border-radius: 8px; text-align: center; }
input { padding: 12px; font-size: 16px; border: none; border-radius: 4px; margin-bottom: 15px; width: 200px; }
button { padding: 12px 30px; font-size: 16px; background: #2196F3; color: white;
         border: none; border-radius: 4px; cursor: pointer; }
.error { color: #f44336; margin-bottom: 15px; }
</style>
</head><body>
<div class="login-box">
<h2>Security Cameras</h2>
`

const loginPageError = `<div id="error" class="error">Incorrect password</div>
`

const loginPageForm = `<form method="POST" action="/login">
<input type="password" name="password" placeholder="Password" autofocus required><br>
<button type="submit">Enter</button>
</form>
</div>
</body></html>
`

// LoginPage — форма входа; failed добавляет сообщение о неверном пароле.
func LoginPage(failed bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, loginPageHead); err != nil {
			return err
		}
		if failed {
			if _, err := io.WriteString(w, loginPageError); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, loginPageForm)
		return err
	})
}
