package ruts

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  string // debug|info|warn|error
	Pretty bool   // console output for development
	Output io.Writer
}

// NewLogger creates the framework logger.
func NewLogger(cfg LogConfig) zerolog.Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "ruts").Logger()
}

// AccessLog logs every request at a level chosen by the response status.
func AccessLog(logger zerolog.Logger) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(rc RequestContext) error {
			begin := time.Now()
			err := next(rc)
			status := rc.Response().Status()
			if he, ok := err.(*HTTPError); ok {
				status = he.Code
			}
			var event *zerolog.Event
			switch {
			case status >= 500:
				event = logger.Error().Err(err)
			case status >= 400:
				event = logger.Warn()
			default:
				event = logger.Info()
			}
			event.Str("method", rc.Method()).
				Str("path", rc.Path()).
				Str("ip", rc.RealIP()).
				Int("status", status).
				Dur("latency", time.Since(begin)).
				Msg("request")
			return err
		}
	}
}
