// Package logging implements a structured, leveled logger: text or JSON
// output, per-call fields, an optional component tag, and a caller
// location. There is no log-rotation machinery here since the server is
// meant to run under an external supervisor that owns log rotation.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the logger's severity threshold.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// String renders the level the way log lines display it.
func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name, defaulting to Info on an
// unrecognized value (the caller still gets the error to act on).
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return Debug, nil
	case "INFO":
		return Info, nil
	case "WARN", "WARNING":
		return Warn, nil
	case "ERROR":
		return Error, nil
	default:
		return Info, fmt.Errorf("invalid log level: %s", s)
	}
}

// Format selects the on-the-wire rendering of a log entry.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

type entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

// Logger is a structured, leveled logger carrying an immutable set of
// context fields. WithField/WithComponent derive a child logger that adds
// fields without mutating the parent — the same pattern every goroutine in
// the server uses to tag its log lines with a stable component name.
type Logger struct {
	mu            *sync.Mutex
	level         Level
	output        io.Writer
	format        Format
	fields        map[string]any
	includeCaller bool
}

// New creates a root logger writing to output at the given level.
func New(level Level, output io.Writer, format Format) *Logger {
	return &Logger{
		mu:            &sync.Mutex{},
		level:         level,
		output:        output,
		format:        format,
		fields:        map[string]any{},
		includeCaller: true,
	}
}

// Default returns a text logger at Info level writing to stderr.
func Default() *Logger {
	return New(Info, os.Stderr, FormatText)
}

// WithField derives a child logger with one additional context field.
func (l *Logger) WithField(key string, value any) *Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{mu: l.mu, level: l.level, output: l.output, format: l.format, fields: fields, includeCaller: l.includeCaller}
}

// WithComponent derives a child logger tagged with a component name, the
// convention every package in this server uses to identify its log lines.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// SetLevel adjusts the threshold below which log calls are suppressed.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, message string, fields map[string]any) {
	l.mu.Lock()
	threshold := l.level
	l.mu.Unlock()
	if level < threshold {
		return
	}

	e := entry{Timestamp: time.Now(), Level: level.String(), Message: message, Fields: map[string]any{}}
	for k, v := range l.fields {
		e.Fields[k] = v
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	if l.includeCaller {
		if _, file, line, ok := runtime.Caller(3); ok {
			parts := strings.Split(file, "/")
			e.Caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
		}
	}

	var out string
	if l.format == FormatJSON {
		data, err := json.Marshal(e)
		if err != nil {
			out = l.formatText(e)
		} else {
			out = string(data) + "\n"
		}
	} else {
		out = l.formatText(e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.output.Write([]byte(out))
}

func (l *Logger) formatText(e entry) string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(e.Level)
	sb.WriteString("] ")
	if e.Caller != "" {
		sb.WriteString("[")
		sb.WriteString(e.Caller)
		sb.WriteString("] ")
	}
	sb.WriteString(e.Message)
	if len(e.Fields) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range e.Fields {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&sb, "%s=%v", k, v)
		}
		sb.WriteString("}")
	}
	sb.WriteString("\n")
	return sb.String()
}

// Debug logs a message at Debug level with optional structured fields.
func (l *Logger) Debug(message string, fields ...map[string]any) { l.logWithFields(Debug, message, fields...) }

// Info logs a message at Info level with optional structured fields.
func (l *Logger) Info(message string, fields ...map[string]any) { l.logWithFields(Info, message, fields...) }

// Warn logs a message at Warn level with optional structured fields.
func (l *Logger) Warn(message string, fields ...map[string]any) { l.logWithFields(Warn, message, fields...) }

// Error logs a message at Error level with optional structured fields.
func (l *Logger) Error(message string, fields ...map[string]any) { l.logWithFields(Error, message, fields...) }

// Fatal logs a message at Error level, then exits the process with status
// 1, the contract callers rely on for fatal startup failures.
func (l *Logger) Fatal(message string, fields ...map[string]any) {
	l.logWithFields(Error, message, fields...)
	os.Exit(1)
}

func (l *Logger) logWithFields(level Level, message string, fieldMaps ...map[string]any) {
	var fields map[string]any
	if len(fieldMaps) > 0 {
		fields = fieldMaps[0]
	}
	l.log(level, message, fields)
}
