package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// LogFilePermissions is the default file permissions for log files (rw-------)
	LogFilePermissions = 0o600

	// FormatText selects human-readable key=value output.
	FormatText = "text"
	// FormatJSON selects one JSON object per line.
	FormatJSON = "json"

	traceLevelValue     = slog.Level(-8)
	defaultAttrCapacity = 8
	moduleKey           = "module"
	floatPrecision      = 1000.0
)

// Options configures NewSlogLogger.
type Options struct {
	Level  LogLevel
	Format string
	// Writer receives console output, os.Stderr when nil.
	Writer io.Writer
	// FilePath additionally appends JSON records to this file when set.
	FilePath string
}

// sink owns the optional log file shared by a logger and its module children.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

// SlogLogger implements Logger using log/slog
type SlogLogger struct {
	handler slog.Handler
	level   slog.Level
	module  string
	fields  []Field
	sink    *sink
}

var attrPool = sync.Pool{
	New: func() any {
		s := make([]slog.Attr, 0, defaultAttrCapacity)
		return &s
	},
}

func getAttrs() *[]slog.Attr {
	ptr, ok := attrPool.Get().(*[]slog.Attr)
	if !ok {
		s := make([]slog.Attr, 0, defaultAttrCapacity)
		return &s
	}
	return ptr
}

func putAttrs(attrs *[]slog.Attr) {
	*attrs = (*attrs)[:0]
	attrPool.Put(attrs)
}

// NewSlogLogger creates a logger writing to the console writer and, optionally, a file.
func NewSlogLogger(opts Options) (*SlogLogger, error) {
	level := parseSlogLevel(opts.Level)
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevelNames}

	var console slog.Handler
	switch opts.Format {
	case "", FormatText:
		console = slog.NewTextHandler(writer, handlerOpts)
	case FormatJSON:
		console = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	l := &SlogLogger{
		handler: console,
		level:   level,
		fields:  make([]Field, 0),
		sink:    &sink{},
	}

	if opts.FilePath != "" {
		file, err := openLogFile(opts.FilePath)
		if err != nil {
			return nil, err
		}
		l.sink.file = file
		l.handler = newMultiWriterHandler(console, slog.NewJSONHandler(file, handlerOpts))
	}

	return l, nil
}

// NewConsoleLogger creates a text logger on stderr. It is meant for bootstrap
// paths and tests where no configuration has been loaded yet.
func NewConsoleLogger(module string, level LogLevel) *SlogLogger {
	l, _ := NewSlogLogger(Options{Level: level, Format: FormatText})
	l.module = module
	return l
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *SlogLogger {
	l, _ := NewSlogLogger(Options{Level: LogLevelError, Writer: io.Discard})
	return l
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func (l *SlogLogger) clone() *SlogLogger {
	return &SlogLogger{
		handler: l.handler,
		level:   l.level,
		module:  l.module,
		fields:  l.fields,
		sink:    l.sink,
	}
}

// Module returns a logger scoped to a specific module. Nested modules are joined with dots.
func (l *SlogLogger) Module(name string) Logger {
	if l == nil {
		return nil
	}
	child := l.clone()
	if l.module != "" {
		child.module = l.module + "." + name
	} else {
		child.module = name
	}
	return child
}

// Trace logs a trace message (most verbose level)
func (l *SlogLogger) Trace(msg string, fields ...Field) {
	l.log(traceLevelValue, msg, fields...)
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

// Log logs a message with explicit level
func (l *SlogLogger) Log(level LogLevel, msg string, fields ...Field) {
	l.log(parseSlogLevel(level), msg, fields...)
}

// With returns a new logger with accumulated fields
func (l *SlogLogger) With(fields ...Field) Logger {
	if l == nil {
		return nil
	}
	child := l.clone()
	child.fields = slices.Concat(l.fields, fields)
	return child
}

// WithContext returns a logger carrying the trace ID found in ctx, if any
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if l == nil {
		return nil
	}
	traceID := TraceID(ctx)
	if traceID == "" {
		return l
	}
	return l.With(String("trace_id", traceID))
}

// Flush syncs the log file, if any
func (l *SlogLogger) Flush() error {
	if l == nil || l.sink == nil {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file != nil {
		if err := l.sink.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

// Close closes the log file, if any. Module children share the file.
func (l *SlogLogger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file != nil {
		if err := l.sink.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.sink.file = nil
	}
	return nil
}

func (l *SlogLogger) log(level slog.Level, msg string, fields ...Field) {
	if l == nil || level < l.level {
		return
	}

	attrsPtr := getAttrs()
	attrs := *attrsPtr

	if l.module != "" {
		attrs = append(attrs, slog.String(moduleKey, l.module))
	}
	for i := range l.fields {
		attrs = append(attrs, fieldToAttr(l.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}

	slog.New(l.handler).LogAttrs(context.Background(), level, msg, attrs...)

	*attrsPtr = attrs
	putAttrs(attrsPtr)
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*floatPrecision)/floatPrecision)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		// slog.Duration renders nanoseconds in JSON
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}

func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == traceLevelValue {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// parseSlogLevel converts LogLevel to slog.Level
func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
