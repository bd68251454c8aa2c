// Package log configures the structured loggers of the simulator.
//
// It adds a TRACE level below slog's DEBUG for the per-cycle pipeline spew
// and names the pipeline modules used as the "mod" attribute.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Levels understood by the simulator.
const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
)

// Pipeline modules.
const (
	ModFetch  = "if"
	ModDecode = "id"
	ModALU    = "alu"
	ModLSU    = "ldb"
	ModBRU    = "bru"
	ModCommit = "commit"
	ModDebug  = "dbgu"
	ModFlush  = "flush"
)

// ModKey is the attribute key carrying the module name.
const ModKey = "mod"

// ParseLevel converts a level name into a slog level.
func ParseLevel(lvl string) (slog.Level, error) {
	switch strings.ToUpper(lvl) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("invalid level: %s", lvl)
	}
}

// LevelString returns the display name of a level.
func LevelString(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}

// New creates a text logger writing to w at the given level.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(LevelString(l))
				}
			}
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
