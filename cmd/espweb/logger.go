package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/freekieb7/espweb/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger picks the log sink: a rotating JSON file when one is configured,
// the OTel log pipeline when telemetry is on, stderr otherwise.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	switch {
	case cfg.Log.File != "":
		file := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})), file
	case cfg.Telemetry.Enabled:
		return otelslog.NewLogger(cfg.Name), nil
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
}
