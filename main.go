package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fairlens/fairlens-go/cmd"
	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading settings: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logCfg := logging.Config{Level: level}
	if settings.Main.Log.Enabled {
		logCfg.FilePath = settings.Main.Log.Path
		logCfg.MaxSizeMB = settings.Main.Log.MaxSize
		logCfg.MaxBackups = settings.Main.Log.MaxBackups
		logCfg.MaxAgeDays = settings.Main.Log.MaxAge
	}
	logging.Init(logCfg)
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
