package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/tablelink/tablelink/internal/server"
	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/config"
	"github.com/tablelink/tablelink/pkg/logging"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	busURL := cfg.Bus.URL
	if cfg.Bus.Embedded {
		embedded, err := bus.StartEmbedded()
		if err != nil {
			logger.Error("Failed to start embedded message bus", slog.Any("error", err))
			os.Exit(1)
		}
		defer embedded.Shutdown()
		busURL = embedded.ClientURL()
		logger.Info("Embedded message bus started", slog.String("url", busURL))
	}

	broadcaster, err := bus.Connect(busURL)
	if err != nil {
		logger.Error("Failed to connect to message bus", slog.Any("error", err))
		os.Exit(1)
	}
	defer broadcaster.Close()

	app := server.NewApp(logger, ctx, cfg, broadcaster)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
