// Package logger provides the component-tagged console logger shared by the
// server, the background consumers and the seeding tool.  Every line has
// the form
//
//	2026-01-02T15:04:05Z [LEVEL] COMPONENT: message
//
// with the level coloured when the output is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log severities.  Lines below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Logger writes leveled lines to an io.Writer.  It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	exit  func(int)
}

var (
	debugTag   = color.New(color.FgHiBlack).SprintFunc()
	infoTag    = color.New(color.FgCyan).SprintFunc()
	warnTag    = color.New(color.FgYellow).SprintFunc()
	errorTag   = color.New(color.FgRed, color.Bold).SprintFunc()
	processTag = color.New(color.FgGreen).SprintFunc()
	dbTag      = color.New(color.FgBlue).SprintFunc()
	paymentTag = color.New(color.FgMagenta).SprintFunc()
	queueTag   = color.New(color.FgHiCyan).SprintFunc()
	apiTag     = color.New(color.FgWhite).SprintFunc()
	secTag     = color.New(color.FgHiRed).SprintFunc()
)

// New returns a Logger writing to stdout at the given level.
func New(level Level) *Logger {
	return &Logger{out: color.Output, level: level, exit: os.Exit}
}

// NewWithWriter returns a Logger writing to w.  Tests use it with a buffer.
func NewWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level, exit: os.Exit}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger { return NewWithWriter(io.Discard, LevelError+1) }

func (l *Logger) write(level Level, tag, component, msg string) {
	if l == nil || level < l.level {
		return
	}
	line := fmt.Sprintf("%s %s %s: %s\n", time.Now().UTC().Format(time.RFC3339), tag, component, msg)
	l.mu.Lock()
	_, _ = io.WriteString(l.out, line)
	l.mu.Unlock()
}

func (l *Logger) Debug(component, msg string) { l.write(LevelDebug, debugTag("[DEBUG]"), component, msg) }
func (l *Logger) Info(component, msg string)  { l.write(LevelInfo, infoTag("[INFO]"), component, msg) }
func (l *Logger) Warn(component, msg string)  { l.write(LevelWarn, warnTag("[WARN]"), component, msg) }
func (l *Logger) Error(component, msg string) { l.write(LevelError, errorTag("[ERROR]"), component, msg) }

// Fatal logs at error level and terminates the process.
func (l *Logger) Fatal(component, msg string) {
	l.write(LevelError, errorTag("[FATAL]"), component, msg)
	l.exit(1)
}

// LogProcess records a startup or shutdown step.
func (l *Logger) LogProcess(step, msg string) {
	l.write(LevelInfo, processTag("[PROCESS]"), step, msg)
}

// LogDatabase records a storage operation against a table or store.
func (l *Logger) LogDatabase(op, table, msg string) {
	l.write(LevelDebug, dbTag("[DB]"), op+" "+table, msg)
}

// LogPayment records a gateway interaction keyed by a reference.
func (l *Logger) LogPayment(op, ref, msg string) {
	l.write(LevelInfo, paymentTag("[PAYMENT]"), op+" "+ref, msg)
}

// LogQueue records a broker interaction on a queue or topic.
func (l *Logger) LogQueue(op, topic, msg string) {
	l.write(LevelInfo, queueTag("[QUEUE]"), op+" "+topic, msg)
}

// LogAPI records a served HTTP request.
func (l *Logger) LogAPI(method, path string, status int, d time.Duration) {
	l.write(LevelInfo, apiTag("[API]"), method+" "+path, fmt.Sprintf("%d in %s", status, d.Round(time.Microsecond)))
}

// LogSecurity records an authentication or authorization event.
func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, secTag("[SECURITY]"), event, msg)
}
