// Package logging is a small levelled logger writing to stderr, backed by
// log/slog.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents severity.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// level is shared by every handler, so SetLevel applies after SetOutput too.
var level = new(slog.LevelVar)

var logger atomic.Pointer[slog.Logger]

func init() { SetOutput(os.Stderr) }

// ParseLevel maps a level name to its Level.
func ParseLevel(s string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// SetLevel parses and sets the global level. Unknown names return an error
// and leave the level unchanged.
func SetLevel(s string) error {
	l, ok := ParseLevel(s)
	if !ok {
		return fmt.Errorf("unknown log level %q (use debug, info, warn or error)", s)
	}
	level.Set(l)
	return nil
}

// GetLevel returns the current global level.
func GetLevel() Level { return level.Level() }

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func logf(l Level, format string, args ...any) {
	lg := logger.Load()
	ctx := context.Background()
	if !lg.Enabled(ctx, l) {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	lg.Log(ctx, l, msg)
}

func Debugf(format string, a ...any) { logf(LevelDebug, format, a...) }
func Infof(format string, a ...any)  { logf(LevelInfo, format, a...) }
func Warnf(format string, a ...any)  { logf(LevelWarn, format, a...) }
func Errorf(format string, a ...any) { logf(LevelError, format, a...) }

// TimeTrack logs the elapsed time of a phase at debug level.
func TimeTrack(start time.Time, label string) {
	logger.Load().Debug("timing", "phase", label, "elapsed", time.Since(start))
}
