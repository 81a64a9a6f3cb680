// root.go — корневая команда и общая инициализация компонентов.
package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/arlo-viewer/internal/config"
	"github.com/bigkaa/arlo-viewer/internal/service"
	"github.com/bigkaa/arlo-viewer/internal/storage/alias"
	"github.com/bigkaa/arlo-viewer/internal/storage/filestore"
	"github.com/bigkaa/arlo-viewer/internal/storage/index"
)

// newRootCmd создаёт корневую команду. Без подкоманды запускается сервер.
func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:          "arlo-viewer",
		Short:        "Просмотр записей камер Arlo",
		Long:         "HTTP-сервис каталога, воспроизведения и очистки записей камер Arlo. Конфигурация — переменные окружения AV_*.",
		Version:      config.Version,
		RunE:         serve.RunE,
		SilenceUsage: true,
	}

	root.AddCommand(serve, newSweepCmd(), newListCmd(), newStatsCmd())
	return root
}

// core — компоненты, общие для сервера и CLI-команд.
type core struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *filestore.FileStore
	aliases   *alias.Resolver
	idx       *index.Index
	retention *service.RetentionService
	catalog   *service.CatalogService
}

// loadCore загружает конфигурацию и собирает хранилище, индекс
// и сервисы каталога.
func loadCore() (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.RecordingsDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации FileStore: %w", err)
	}

	// 2. Алиасы камер (ошибка загрузки не фатальна)
	aliases := alias.Load(cfg.AliasesFile, logger)

	// 3. Индекс и сервисы каталога
	idx := index.New(store, aliases, cfg.StatConcurrency, logger)
	retention := service.NewRetentionService(store, idx, cfg.Retention, cfg.StatConcurrency, logger)
	catalog := service.NewCatalogService(retention, idx, logger)

	return &core{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		aliases:   aliases,
		idx:       idx,
		retention: retention,
		catalog:   catalog,
	}, nil
}
