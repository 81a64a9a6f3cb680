// static.go — раздача веб-интерфейса из директории AV_STATIC_DIR.
package handlers

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// staticFS скрывает листинг директорий без index.html.
type staticFS struct {
	root http.FileSystem
}

func (s staticFS) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		index, err := s.root.Open(path.Join(name, "index.html"))
		if err != nil {
			f.Close()
			return nil, fs.ErrNotExist
		}
		index.Close()
	}
	return f, nil
}

// NewStaticHandler возвращает обработчик файлов директории dir.
// Пустой dir — nil (статика не раздаётся).
func NewStaticHandler(dir string) (http.Handler, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: не директория", dir)
	}
	return http.FileServer(staticFS{root: http.Dir(dir)}), nil
}
