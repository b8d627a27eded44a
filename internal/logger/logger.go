package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type levelStyle struct {
	name  string
	color color.Attribute
}

var levelStyles = [...]levelStyle{
	DEBUG: {"DEBUG", color.FgCyan},
	INFO:  {"INFO", color.FgGreen},
	WARN:  {"WARN", color.FgYellow},
	ERROR: {"ERROR", color.FgRed},
	FATAL: {"FATAL", color.FgRed},
}

func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "INFO"
	}
	return levelStyles[l].name
}

// ParseLevel accepts level names case-insensitively, WARNING included.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "WARNING" {
		return WARN, true
	}
	for lvl, style := range levelStyles {
		if style.name == name {
			return LogLevel(lvl), true
		}
	}
	return INFO, false
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	jsonOut  io.Writer
	closer   io.Closer
	colored  bool
	minLevel LogLevel
}

// NewLogger writes colored lines to stdout and JSON lines to
// <dir>/<service>-YYYY-MM-DD.log.
func NewLogger(service, dir string) *Logger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", service, time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	l := &Logger{out: os.Stdout, jsonOut: file, closer: file, colored: true, minLevel: DEBUG}
	l.Info("LOGGER", fmt.Sprintf("%s logging to %s", service, path))
	return l
}

// NewWithWriter logs plain lines to w only. Used by tests and the CLIs.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{out: w, minLevel: DEBUG}
}

// SetLevel drops entries below the named level. Unknown names keep the current level.
func (l *Logger) SetLevel(name string) {
	if lvl, ok := ParseLevel(name); ok {
		l.mu.Lock()
		l.minLevel = lvl
		l.mu.Unlock()
	}
}

func (l *Logger) log(level LogLevel, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	file, line := caller()
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	fmt.Fprint(l.out, l.terminalLine(level, entry))
	if l.jsonOut != nil {
		if raw, err := json.Marshal(entry); err == nil {
			l.jsonOut.Write(append(raw, '\n'))
		}
	}
}

// caller reports the first frame outside this file.
func caller() (string, int) {
	for skip := 2; skip < 8; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if filepath.Base(file) != "logger.go" {
			return filepath.Base(file), line
		}
	}
	return "", 0
}

func (l *Logger) terminalLine(level LogLevel, entry LogEntry) string {
	paint := func(attrs []color.Attribute, format string, args ...interface{}) string {
		if !l.colored {
			return fmt.Sprintf(format, args...)
		}
		return color.New(attrs...).Sprintf(format, args...)
	}

	hue := levelStyles[INFO].color
	if level >= DEBUG && level <= FATAL {
		hue = levelStyles[level].color
	}

	var b strings.Builder
	b.WriteString(paint([]color.Attribute{color.FgBlue}, "%s", entry.Timestamp[11:19]))
	b.WriteByte(' ')
	b.WriteString(paint([]color.Attribute{hue}, "%-5s", entry.Level))
	b.WriteByte(' ')
	b.WriteString(paint([]color.Attribute{hue, color.Bold}, "[%-10s]", entry.Category))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.File != "" && entry.Line > 0 {
		b.WriteString(paint([]color.Attribute{color.FgMagenta}, " (%s:%d)", entry.File, entry.Line))
	}
	b.WriteByte('\n')
	return b.String()
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// LogEvent records a change to a calendar event.
func (l *Logger) LogEvent(action, eventID, message string) {
	l.Info("EVENT", fmt.Sprintf("[%s] %s - %s", action, eventID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

// LogSecurity is WARN: denied reads, refused creations, rejected OAuth callbacks.
func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l.closer != nil {
		l.Info("LOGGER", "Closing log file")
		l.mu.Lock()
		defer l.mu.Unlock()
		l.closer.Close()
		l.closer, l.jsonOut = nil, nil
	}
}
