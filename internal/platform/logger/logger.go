// Package logger builds the process slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"harvestcert/internal/platform/config"
)

// New returns a JSON or text logger writing to stdout.
func New(cfg config.Log) (*slog.Logger, error) {
	return NewWithWriter(os.Stdout, cfg)
}

func NewWithWriter(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)).With("service", "harvestcert"), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)).With("service", "harvestcert"), nil
	default:
		return nil, fmt.Errorf("log format %q is not supported", cfg.Format)
	}
}
