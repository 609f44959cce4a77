// ====================================
// File: cmd/launcher/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/solaunch/launch-bot/internal/config"
	"github.com/solaunch/launch-bot/internal/launcher"
	"github.com/solaunch/launch-bot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	taskPath := flag.String("task", "configs/launch.json", "path to launch task file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()
	log.Info("Starting token launcher")

	runner, err := launcher.NewRunner(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize launcher", zap.Error(err))
		os.Exit(1)
	}

	if err := runner.Run(ctx, *taskPath); err != nil {
		log.Fatal("Launch execution error", zap.Error(err))
		os.Exit(1)
	}

	runner.Shutdown()
}
