package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/baechuer/vehicle-maintenance/services/reset-service/internal/pkg/context"
)

var Logger zerolog.Logger

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	if format == "json" {
		Logger = zerolog.New(w).With().Timestamp().Str("service", "reset-service").Logger().Level(level)
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Str("service", "reset-service").Logger().Level(level)
	}

	// set global
	zlog.Logger = Logger
}

// WithCtx returns a child logger tagged with the request id carried by ctx.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return &l
}
