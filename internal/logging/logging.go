// Package logging builds the zerolog logger shared by the interpreter's
// components.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"hoc/internal/config"
)

// New returns a logger writing to w at the configured level. An empty
// level means warn.
func New(cfg config.Log, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	var out io.Writer = w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
