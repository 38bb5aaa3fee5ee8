// Package logx resolves the blender's -l log destination and renders
// level-tagged lines the way the teacher's CLIs color their startup
// warnings: plain info/debug through the stdlib logger, Warn/Error pushed
// through github.com/fatih/color so they stand out on an interactive
// terminal and degrade to plain text when not a tty.
package logx

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Level selects whether Logger emits Info and Debug messages; Warn and
// Error are always emitted.
type Level int

const (
	LevelWarn Level = iota // default: warnings and errors only
	LevelInfo
	LevelDebug
)

// Logger wraps a stdlib *log.Logger with spec section 6/7 level tags.
// level is read from the reader goroutines' hot path and written from the
// SIGUSR1/SIGUSR2 handler, so it's held in an atomic rather than plain int.
type Logger struct {
	level atomic.Int32
	out   *log.Logger
	file  *os.File // non-nil when the destination is a plain file, for Close
}

// Open resolves dest per spec section 6: "" selects syslog, "-" selects
// stderr, anything else is a filename opened append-only, matching the
// teacher's config.Log handling in client/main.go and server/main.go.
func Open(dest string, level Level) (*Logger, error) {
	lg := &Logger{}
	lg.level.Store(int32(level))
	switch dest {
	case "-":
		lg.out = log.New(os.Stderr, "", log.LstdFlags)
	case "":
		w, err := openSyslog()
		if err != nil {
			return nil, errors.Wrap(err, "logx: open syslog")
		}
		lg.out = log.New(w, "", log.LstdFlags)
	default:
		f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "logx: open log file %q", dest)
		}
		lg.file = f
		lg.out = log.New(f, "", log.LstdFlags)
	}
	return lg, nil
}

// Close releases the underlying file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Info(v ...any) {
	if l.Level() >= LevelInfo {
		l.out.Println(append([]any{"INFO "}, v...)...)
	}
}

func (l *Logger) Infof(format string, v ...any) {
	if l.Level() >= LevelInfo {
		l.out.Printf("INFO  "+format, v...)
	}
}

func (l *Logger) Debug(v ...any) {
	if l.Level() >= LevelDebug {
		l.out.Println(append([]any{"DEBUG"}, v...)...)
	}
}

func (l *Logger) Debugf(format string, v ...any) {
	if l.Level() >= LevelDebug {
		l.out.Printf("DEBUG "+format, v...)
	}
}

func (l *Logger) Warn(v ...any) {
	l.out.Println(append([]any{color.YellowString("WARN ")}, v...)...)
}

func (l *Logger) Warnf(format string, v ...any) {
	l.out.Printf(color.YellowString("WARN  ")+format, v...)
}

func (l *Logger) Error(v ...any) {
	l.out.Println(append([]any{color.RedString("ERROR")}, v...)...)
}

func (l *Logger) Errorf(format string, v ...any) {
	l.out.Printf(color.RedString("ERROR ")+format, v...)
}

// SetLevel adjusts the level at runtime; wired to SIGUSR1/SIGUSR2 by the
// supervisor per spec 4.5 ("reserved for log-level adjustment").
func (l *Logger) SetLevel(lv Level) {
	l.level.Store(int32(lv))
}

// Level returns the currently active level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}
