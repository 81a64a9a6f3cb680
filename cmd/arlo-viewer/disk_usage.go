// disk_usage.go — получение информации об ёмкости тома записей.
// Платформозависимый код для Unix-подобных систем.
package main

import (
	"fmt"
	"syscall"
)

// diskUsage — ёмкость файловой системы в байтах.
type diskUsage struct {
	Total     int64
	Used      int64
	Available int64
}

// getDiskUsage возвращает ёмкость файловой системы, содержащей path.
func getDiskUsage(path string) (diskUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return diskUsage{}, fmt.Errorf("ошибка statfs %s: %w", path, err)
	}

	bsize := int64(stat.Bsize) //nolint:unconvert // тип Bsize зависит от платформы
	total := int64(stat.Blocks) * bsize
	available := int64(stat.Bavail) * bsize

	return diskUsage{
		Total:     total,
		Used:      total - available,
		Available: available,
	}, nil
}
