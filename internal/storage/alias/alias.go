// Пакет alias — отображаемые имена камер по серийному номеру.
//
// Карта загружается один раз при старте из YAML-конфигурации подсистемы
// управления камерами (ключ CameraAliases) и далее не изменяется.
// Resolver безопасен для конкурентного чтения без блокировок.
package alias

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Unknown — имя камеры для записей с нераспознанным именем файла.
const Unknown = "unknown"

// fileConfig — интересующая часть конфигурации управления камерами.
type fileConfig struct {
	CameraAliases map[string]string `yaml:"CameraAliases"`
}

// Resolver — неизменяемая карта serial → отображаемое имя.
type Resolver struct {
	aliases map[string]string
}

// New создаёт Resolver из готовой карты. Карта копируется.
func New(aliases map[string]string) *Resolver {
	copied := make(map[string]string, len(aliases))
	for serial, name := range aliases {
		copied[serial] = name
	}
	return &Resolver{aliases: copied}
}

// Parse разбирает YAML и возвращает карту алиасов.
// Отсутствие ключа CameraAliases — не ошибка (пустая карта).
func Parse(data []byte) (map[string]string, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации алиасов: %w", err)
	}
	if cfg.CameraAliases == nil {
		return map[string]string{}, nil
	}
	return cfg.CameraAliases, nil
}

// LoadFile читает карту алиасов из YAML-файла.
func LoadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, errors.New("путь к конфигурации алиасов не задан")
	}

	// #nosec G304 -- путь задаётся оператором через AV_ALIASES_FILE.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации алиасов %s: %w", path, err)
	}

	aliases, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aliases, nil
}

// Load загружает Resolver из файла. Ошибка загрузки не фатальна:
// она логируется, и возвращается Resolver с пустой картой
// (каждый serial отображается как есть).
func Load(path string, logger *slog.Logger) *Resolver {
	aliases, err := LoadFile(path)
	if err != nil {
		logger.Warn("Алиасы камер не загружены, используются серийные номера",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return New(nil)
	}

	logger.Info("Алиасы камер загружены",
		slog.String("path", path),
		slog.Int("count", len(aliases)),
	)
	return New(aliases)
}

// Resolve возвращает отображаемое имя камеры.
// Пустой serial означает нераспознанную запись и даёт Unknown.
// Serial без алиаса возвращается без изменений.
func (r *Resolver) Resolve(serial string) string {
	if serial == "" {
		return Unknown
	}
	if name, ok := r.aliases[serial]; ok && name != "" {
		return name
	}
	return serial
}

// Len возвращает количество загруженных алиасов.
func (r *Resolver) Len() int {
	return len(r.aliases)
}
