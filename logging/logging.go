package logging

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

// FileName is the log file for the given day
func FileName(now time.Time) string {
	return "sprunki_" + now.Format("2006-01-02") + ".log"
}

// ParseLevel turns "debug", "info", ... into a zap level. Unknown names fall back to info.
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// NewFile logs JSON into a daily file under dir. The terminal UI owns
// stdout so nothing is written there. The returned func closes the file.
func NewFile(dir, level string) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, errors.Wrap(err, "create log directory")
	}

	path := filepath.Join(dir, FileName(time.Now()))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(file),
		ParseLevel(level),
	)
	return zap.New(core, zap.AddCaller()), file.Close, nil
}

// NewConsole logs human readable lines to stderr, and to a daily file under
// dir when dir is set.
func NewConsole(dir, level string) (*zap.Logger, func() error, error) {
	lvl := ParseLevel(level)
	enc := encoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl),
	}
	closer := func() error { return nil }

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, errors.Wrap(err, "create log directory")
		}
		file, err := os.OpenFile(filepath.Join(dir, FileName(time.Now())), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), lvl))
		closer = file.Close
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), closer, nil
}
