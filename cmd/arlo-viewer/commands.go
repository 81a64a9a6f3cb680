// commands.go — служебные команды: очистка, каталог, статистика тома.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/arlo-viewer/internal/domain/model"
)

// sweepOutput — результат команды sweep.
type sweepOutput struct {
	Scanned       int    `json:"scanned"`
	Removed       int    `json:"removed"`
	Errors        int    `json:"errors"`
	SidecarErrors int    `json:"sidecar_errors"`
	Duration      string `json:"duration"`
}

// statsOutput — результат команды stats.
type statsOutput struct {
	RecordingsDir  string `json:"recordings_dir"`
	Recordings     int    `json:"recordings"`
	RecordingBytes int64  `json:"recording_bytes"`
	Oldest         string `json:"oldest,omitempty"`
	Newest         string `json:"newest,omitempty"`
	DiskTotal      int64  `json:"disk_total_bytes"`
	DiskUsed       int64  `json:"disk_used_bytes"`
	DiskAvailable  int64  `json:"disk_available_bytes"`
}

// newSweepCmd — однократная retention-очистка (для cron).
func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Удалить записи старше срока хранения и выйти",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCore()
			if err != nil {
				return err
			}
			result, err := c.retention.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("очистка не выполнена: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), sweepOutput{
				Scanned:       result.Scanned,
				Removed:       result.Removed,
				Errors:        result.Errors,
				SidecarErrors: result.SidecarErrors,
				Duration:      result.Duration.String(),
			})
		},
	}
}

// newListCmd — каталог записей в формате GET /api/recordings.
func newListCmd() *cobra.Command {
	var noSweep bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Вывести каталог записей (новые первыми)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCore()
			if err != nil {
				return err
			}

			var entries []model.CatalogEntry
			if noSweep {
				entries, err = c.idx.List(cmd.Context())
			} else {
				entries, err = c.catalog.List(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("ошибка построения каталога: %w", err)
			}
			if entries == nil {
				entries = []model.CatalogEntry{}
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Не выполнять очистку перед построением каталога")
	return cmd
}

// newStatsCmd — сводка по директории записей и тому.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику директории записей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCore()
			if err != nil {
				return err
			}

			recs, err := c.idx.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка чтения директории записей: %w", err)
			}

			out := statsOutput{
				RecordingsDir: c.cfg.RecordingsDir,
				Recordings:    len(recs),
			}
			for i, rec := range recs {
				out.RecordingBytes += rec.Size
				ts := rec.ModTime.UTC().Format(time.RFC3339)
				if i == 0 || ts < out.Oldest {
					out.Oldest = ts
				}
				if i == 0 || ts > out.Newest {
					out.Newest = ts
				}
			}

			usage, err := getDiskUsage(c.cfg.RecordingsDir)
			if err != nil {
				return err
			}
			out.DiskTotal = usage.Total
			out.DiskUsed = usage.Used
			out.DiskAvailable = usage.Available

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
