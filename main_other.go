//go:build !windows

package main

import (
	"os"
	"runtime"

	"netvardump/packages/Memory/logger"
)

func main() {
	logger.NewStdOutLogger(false).Error("Attaching to a live process is only supported on Windows", "os", runtime.GOOS)
	os.Exit(1)
}
