// Точка входа arlo-viewer — просмотр записей камер Arlo.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
