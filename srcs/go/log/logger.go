package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lsds/hcomm/srcs/go/config"
	"github.com/rs/zerolog"
)

type Level int32

const (
	Debug Level = iota
	Info  Level = iota
	Warn  Level = iota
	Error Level = iota
)

var zlevels = map[Level]zerolog.Level{
	Debug: zerolog.DebugLevel,
	Info:  zerolog.InfoLevel,
	Warn:  zerolog.WarnLevel,
	Error: zerolog.ErrorLevel,
}

func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case `DEBUG`:
		return Debug
	case `WARN`:
		return Warn
	case `ERROR`:
		return Error
	default:
		return Info
	}
}

var std = New(os.Stdout)

// Logger wraps a zerolog.Logger with printf style helpers.
type Logger struct {
	sync.Mutex
	zl    zerolog.Logger
	level Level
}

func New(w io.Writer) *Logger {
	l := &Logger{level: ParseLevel(config.LogLevel)}
	l.setOutput(w)
	return l
}

func (l *Logger) setOutput(w io.Writer) {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	l.zl = zerolog.New(cw).Level(zlevels[l.level]).With().Timestamp().Logger()
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.Lock()
	defer l.Unlock()
	if level < l.level {
		return
	}
	var e *zerolog.Event
	switch level {
	case Debug:
		e = l.zl.Debug()
	case Info:
		e = l.zl.Info()
	case Warn:
		e = l.zl.Warn()
	default:
		e = l.zl.Error()
	}
	e.Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(Debug, format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(Info, format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(Warn, format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
}

func (l *Logger) Exitf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
	os.Exit(1)
}

func (l *Logger) SetOutput(w io.Writer) {
	l.Lock()
	defer l.Unlock()
	l.setOutput(w)
}

func (l *Logger) SetLevel(level Level) {
	l.Lock()
	defer l.Unlock()
	l.level = level
	l.zl = l.zl.Level(zlevels[level])
}

// With returns a zerolog child logger carrying the given string fields.
func (l *Logger) With(kvs ...string) zerolog.Logger {
	l.Lock()
	defer l.Unlock()
	c := l.zl.With()
	for i := 0; i+1 < len(kvs); i += 2 {
		c = c.Str(kvs[i], kvs[i+1])
	}
	return c.Logger()
}

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	Exitf     = std.Exitf
	SetOutput = std.SetOutput
	SetLevel  = std.SetLevel
	With      = std.With
)
