package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

var (
	mu            sync.RWMutex
	showDateTime  bool
	defaultLogger *Logger
	logFile       *os.File
	logFilePath   = filepath.Join(os.TempDir(), "htft.log")
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	HIGHLIGHT
	WARN
	ERROR
	FATAL
)

// Logger wraps a zerolog logger with the level set used across the project.
// INFORM and HIGHLIGHT are info level events carrying a "tag" field.
type Logger struct {
	zl    zerolog.Logger
	out   io.Writer
	level LogLevel
}

func init() {
	showDateTime = false
	defaultLogger = NewLogger(INFO, os.Stderr)
}

// NewLogger builds a console logger writing to w. Stdout is never the default
// because the stdio MCP transport owns it.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	l := &Logger{out: w, level: level}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{
		Out:        l.out,
		NoColor:    l.out != os.Stderr && l.out != os.Stdout,
		TimeFormat: time.DateTime,
	}
	if !showDateTime {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	l.zl = zerolog.New(cw).With().Timestamp().Logger()
}

func SetShowDateTime(value bool) {
	mu.Lock()
	defer mu.Unlock()
	showDateTime = value
	defaultLogger.rebuild()
}

// SetLevel changes the minimum level of the default logger
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.level = level
}

// SetLogFile changes where SetLogOutput('f') and ('b') write
func SetLogFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	if path != "" {
		logFilePath = path
	}
}

// SetOutput points the default logger at an arbitrary writer, mostly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.out = w
	defaultLogger.rebuild()
}

// SetLogOutput sets the output destination for logs
// 'c' for console (stderr), 'f' for file, 'b' for both
func SetLogOutput(outputType rune) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	openFile := func() error {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
		}
		logFile = f
		return nil
	}

	switch outputType {
	case 'c':
		defaultLogger.out = os.Stderr
	case 'f':
		if err := openFile(); err != nil {
			return err
		}
		defaultLogger.out = logFile
	case 'b':
		if err := openFile(); err != nil {
			return err
		}
		defaultLogger.out = zerolog.MultiLevelWriter(os.Stderr, logFile)
	default:
		return fmt.Errorf("invalid log output type: %c", outputType)
	}
	defaultLogger.rebuild()
	return nil
}

// ParseLevel maps a config string such as "debug" or "warn" to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "inform":
		return INFORM, nil
	case "highlight":
		return HIGHLIGHT, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	mu.RLock()
	minLevel, zl := l.level, l.zl
	mu.RUnlock()
	if level < minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}
	file = filepath.Base(file)

	primitives, objects := processArgs(v...)
	msg := format
	if len(primitives) > 0 {
		msg = format + " " + strings.Join(primitives, " ")
	}

	ev := zl.WithLevel(level.zerologLevel()).Str("caller", fmt.Sprintf("%s:%d", file, line))
	if level == INFORM || level == HIGHLIGHT {
		ev = ev.Str("tag", strings.ToLower(level.String()))
	}
	for i, obj := range objects {
		ev = ev.Interface(fmt.Sprintf("arg%d", i), obj)
	}
	ev.Msg(msg)
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case HIGHLIGHT:
		return "HIGHLIGHT"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// processArgs splits arguments into printable primitives and structured
// values, the latter being attached to the event as fields
func processArgs(args ...any) ([]string, []any) {
	if len(args) == 0 {
		return nil, nil
	}

	var primitives []string
	var objects []any

	for _, arg := range args {
		if !isPrimitive(arg) {
			objects = append(objects, arg)
			continue
		}
		switch v := arg.(type) {
		case float32:
			primitives = append(primitives, fmt.Sprintf("%.2f", v))
		case float64:
			primitives = append(primitives, fmt.Sprintf("%.2f", v))
		case string:
			primitives = append(primitives, v)
		case error:
			primitives = append(primitives, v.Error())
		case nil:
			primitives = append(primitives, "nil")
		default:
			primitives = append(primitives, fmt.Sprintf("%v", v))
		}
	}
	return primitives, objects
}

func isPrimitive(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error, fmt.Stringer:
		return true
	default:
		return false
	}
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	defaultLogger.log(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	defaultLogger.log(INFO, format, v...)
}

func Inform(format string, v ...any) {
	defaultLogger.log(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	defaultLogger.log(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	defaultLogger.log(WARN, format, v...)
}

func Error(format string, v ...any) {
	defaultLogger.log(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	defaultLogger.log(FATAL, format, v...)
	os.Exit(1)
}
