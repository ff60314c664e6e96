// Package logging builds the zap logger shared by the client, the TUI and
// the CLI. The TUI owns the terminal, so logs go to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger writing console-encoded lines to path at the
// given level ("debug", "info", "warn", "error"). The returned func flushes
// and closes the file.
func New(path, level string) (*zap.SugaredLogger, func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(f), lvl)
	logger := zap.New(core, zap.AddCaller()).Named("authdesk")

	closeFn := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger.Sugar(), closeFn, nil
}
