// Package utils holds process-level helpers shared by the commands.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level string // debug, info, warn, error; anything else means info

	// OutputPath is a comma-separated list of stdout, stderr or file paths
	OutputPath string

	Format  string // json or console
	Service string // stamped on every entry when set
}

// NewLogger builds a zap logger writing to every configured output.
// Console output is colored only when no file is among the outputs.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sinks, toFile, err := openSinks(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format, !toFile), zapcore.NewMultiWriteSyncer(sinks...), level)

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

func newEncoder(format string, color bool) zapcore.Encoder {
	if format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// openSinks resolves each output; toFile reports whether any is a file
func openSinks(spec string) (sinks []zapcore.WriteSyncer, toFile bool, err error) {
	for _, out := range strings.Split(spec, ",") {
		switch out = strings.TrimSpace(out); out {
		case "", "stdout":
			sinks = append(sinks, zapcore.Lock(os.Stdout))
		case "stderr":
			sinks = append(sinks, zapcore.Lock(os.Stderr))
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, false, fmt.Errorf("create log directory for %s: %w", out, err)
			}
			f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, false, fmt.Errorf("open log file %s: %w", out, err)
			}
			sinks = append(sinks, zapcore.AddSync(f))
			toFile = true
		}
	}
	return sinks, toFile, nil
}
