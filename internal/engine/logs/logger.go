// Package logs provides a logger setup function that configures the logger from the log section of the config.
// It uses the standard library's slog package for structured logging and lumberjack for file rotation.
package logs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/akyaiy/verusgate/internal/engine/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var GlobalLevel slog.Level

const (
	OutStdout = "%1%"
	OutStderr = "%2%"
)

// SlogWriter lets a *log.Logger (e.g. http.Server.ErrorLog) write into slog.
type SlogWriter struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (w *SlogWriter) Write(p []byte) (n int, err error) {
	msg := string(bytes.TrimSpace(p))
	w.Logger.Log(context.TODO(), w.Level, msg)
	return len(p), nil
}

func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger initializes and returns a logger based on the provided log config.
// Output "%1%" and "%2%" stand for stdout and stderr, anything else is a directory
// in which event.log is rotated.
func SetupLogger(o *config.Log) (*slog.Logger, error) {
	if o == nil || o.Level == nil || o.OutPath == nil {
		return nil, fmt.Errorf("log config is incomplete")
	}

	GlobalLevel = ParseLevel(*o.Level)
	handlerOpts := slog.HandlerOptions{Level: GlobalLevel}

	var writer io.Writer
	switch *o.OutPath {
	case OutStdout:
		writer = os.Stdout
	case OutStderr, "":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(*o.OutPath, 0755); err != nil {
			return nil, fmt.Errorf("cannot create log directory: %w", err)
		}
		writer = &lumberjack.Logger{
			Filename:   filepath.Join(*o.OutPath, "event.log"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
	}

	if o.JSON != nil && *o.JSON {
		return slog.New(slog.NewJSONHandler(writer, &handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(writer, &handlerOpts)), nil
}
