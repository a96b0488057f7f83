// Package logging builds the leveled CLI logger used across the tool.
package logging

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/level"
)

// DefaultLevel keeps a normal run silent.
const DefaultLevel = "warn"

// New returns a logger writing human-readable lines to w, dropping entries
// below lvl ("debug", "info", "warn", "error").
func New(w io.Writer, lvl string) (*log.Logger, error) {
	l, err := log.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return &log.Logger{
		Handler: level.New(cli.New(w), l),
		Level:   l,
	}, nil
}
