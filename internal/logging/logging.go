// Package logging holds the process-wide slog logger. Components take a
// tagged child through For; cmd/bridge configures it twice, first from the
// environment and then from the loaded config.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Options selects the level (see ParseLevel) and the handler format.
type Options struct {
	Level string
	JSON  bool
	// Output defaults to stderr.
	Output io.Writer
}

var def atomic.Value

func init() {
	cfg := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := slog.NewTextHandler(os.Stderr, cfg)
	def.Store(slog.New(h))
}

// Configure replaces the default logger. Loggers already obtained through L
// or For keep writing to the handler they were created with.
func Configure(opts Options) {
	lvl := ParseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	def.Store(slog.New(h))
}

// ParseLevel maps debug, info, warn (or warning) and error, in any case, to a
// slog level. Anything else is info.
func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the current default logger.
func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// For returns the default logger tagged with a component name.
func For(component string) *slog.Logger {
	return L().With("component", component)
}

// InitFromEnv reads RUMBRIDGE_LOG_LEVEL and RUMBRIDGE_LOG_JSON. It runs before
// the config file is loaded so that config errors are logged in the right
// format.
func InitFromEnv() {
	lvl := os.Getenv("RUMBRIDGE_LOG_LEVEL")
	jsonStr := os.Getenv("RUMBRIDGE_LOG_JSON")
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(jsonStr)); err == nil {
		json = b
	}
	Configure(Options{Level: lvl, JSON: json})
}
