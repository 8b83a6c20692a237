// Package logging configures the process logger used by loom internals.
package logging

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // default, text, json
}

var def atomic.Pointer[zap.Logger]

func init() {
	def.Store(build(Options{}))
}

// Configure replaces the process logger.
func Configure(opts Options) {
	def.Store(build(opts))
}

// L returns the current process logger.
func L() *zap.Logger {
	return def.Load()
}

// InitFromEnv configures the logger from LOOM_LOG_LEVEL and LOOM_LOG_FORMAT.
func InitFromEnv() {
	Configure(Options{
		Level:  os.Getenv("LOOM_LOG_LEVEL"),
		Format: os.Getenv("LOOM_LOG_FORMAT"),
	})
}

func build(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		// "default" and "text" both render console output.
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), parseLevel(opts.Level))
	return zap.New(core)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
