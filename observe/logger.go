package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"
	"time"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLogLevel parses a level name. Unknown names map to info.
func ParseLogLevel(s string) LogLevel {
	if i := slices.Index(levelNames[:], s); i >= 0 {
		return LogLevel(i)
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line. Loggers derived with
// WithOperation share the parent's writer and lock.
type jsonLogger struct {
	min   LogLevel
	out   *lockedWriter
	attrs map[string]any
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) writeLine(b []byte) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(append(b, '\n'))
}

// NewLogger returns a JSON logger at level writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger at level writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{min: ParseLogLevel(level), out: &lockedWriter{w: w}}
}

// WithOperation binds op.id, op.name and, when set, op.region.
func (l *jsonLogger) WithOperation(meta OperationMeta) Logger {
	attrs := maps.Clone(l.attrs)
	if attrs == nil {
		attrs = make(map[string]any, 3)
	}
	attrs["op.id"] = meta.ID()
	attrs["op.name"] = meta.Name
	if meta.Region != "" {
		attrs["op.region"] = meta.Region
	}
	return &jsonLogger{min: l.min, out: l.out, attrs: attrs}
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(LevelError, msg, fields)
}

func (l *jsonLogger) write(level LogLevel, msg string, fields []Field) {
	if level < l.min {
		return
	}

	entry := make(map[string]any, len(l.attrs)+len(fields)+3)
	maps.Copy(entry, l.attrs)
	for _, f := range fields {
		entry[f.Key] = f.Value
		if slices.Contains(RedactedFields, f.Key) {
			entry[f.Key] = "[REDACTED]"
		}
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	line, err := json.Marshal(entry)
	if err != nil {
		// Cached values are arbitrary; print the ones JSON cannot take.
		for _, f := range fields {
			if _, ok := entry[f.Key].(string); !ok {
				entry[f.Key] = fmt.Sprint(f.Value)
			}
		}
		if line, err = json.Marshal(entry); err != nil {
			return
		}
	}
	l.out.writeLine(line)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger { return discardLogger{} }

type discardLogger struct{}

func (discardLogger) Debug(context.Context, string, ...Field) {}
func (discardLogger) Info(context.Context, string, ...Field)  {}
func (discardLogger) Warn(context.Context, string, ...Field)  {}
func (discardLogger) Error(context.Context, string, ...Field) {}

func (d discardLogger) WithOperation(OperationMeta) Logger { return d }

var (
	_ Logger = (*jsonLogger)(nil)
	_ Logger = discardLogger{}
)
