package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level, encoding and destination of the logger.
type Options struct {
	Level  string
	Format string // json or console
	File   string // empty means stderr
}

// New builds the application logger. The returned close func flushes and
// releases the log file.
func New(opts Options) (*zap.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	l, err := NewWithWriter(w, opts)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return l, func() {
		_ = l.Sync()
		closeFn()
	}, nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	// Customize keys for consistency with the service's log pipeline
	encCfg.TimeKey = "timestamp"
	encCfg.LevelKey = "level"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Format {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller()), nil
}
