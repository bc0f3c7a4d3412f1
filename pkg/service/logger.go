package service

import (
	"log/slog"
	"os"

	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

type logger_Params struct {
	fx.In

	Config *variables.Config
}

var loggerWriter = os.Stdout

func logger(params logger_Params) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(params.Config.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(loggerWriter, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	}))
}

var LoggerModule = fx.Module("logger", fx.Provide(
	logger,
))
