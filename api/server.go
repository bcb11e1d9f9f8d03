package api

import (
	"context"
	"log/slog"
	"os"

	"SongBracket/api/config"
	"SongBracket/api/controllers"
)

var server = controllers.Server{}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "event", "config_invalid", "error", err.Error())
		os.Exit(1)
	}

	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := server.Initialize(context.Background(), cfg, logger); err != nil {
		logger.Error("server init failed", "event", "server_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer server.Close()

	if err := server.Run(cfg.ListenAddr()); err != nil {
		logger.Error("server stopped", "event", "server_stopped", "error", err.Error())
	}
}
