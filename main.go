package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vantazh/vantazh-go/cmd"
	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/logging"
	"github.com/vantazh/vantazh-go/internal/runtime"
)

// version and buildDate are set at build time via ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings := conf.Setting()
	if settings == nil {
		fmt.Fprintln(os.Stderr, "error loading configuration")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)
	logging.Info("starting vantazh dispatch service", "version", version, "build_date", buildDate)

	rtc := &runtime.Context{Version: version, BuildDate: buildDate}
	rootCmd := cmd.RootCommand(settings, rtc)
	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}
