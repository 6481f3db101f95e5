package server

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/goliatone/go-auth-dashboard/config"
)

// NewLogger builds the root logger. Components take named children of it.
func NewLogger(cfg config.LogConfig, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "authdash",
		Level:      level,
		Output:     out,
		JSONFormat: cfg.JSON,
	})
}
