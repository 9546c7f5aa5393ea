package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

type level struct {
	name  string
	color string
}

var (
	levelInfo  = level{"INFO ", "\033[32m"}
	levelWarn  = level{"WARN ", "\033[33m"}
	levelError = level{"ERROR", "\033[31m"}
	levelDebug = level{"DEBUG", "\033[36m"}
)

// Logger provides structured, leveled logging throughout the application.
// Console lines are colored; lines written to a capture writer are plain so
// the run log can be archived.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	mu        sync.Mutex
	capture   io.Writer
	debugOn   bool
	colorless bool
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	flags := 0
	return &Logger{
		info:    log.New(os.Stdout, "", flags),
		warn:    log.New(os.Stdout, "", flags),
		err:     log.New(os.Stderr, "", flags),
		debug:   log.New(os.Stdout, "", flags),
		debugOn: true,
	}
}

// NewLoggerTo creates a Logger sending every level, uncolored, to w.
// Tests use it with io.Discard or a buffer.
func NewLoggerTo(w io.Writer) *Logger {
	l := log.New(w, "", 0)
	return &Logger{info: l, warn: l, err: l, debug: l, debugOn: true, colorless: true}
}

// Capture duplicates every subsequent line, without colors, into w.
func (l *Logger) Capture(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capture = w
}

// SetDebug toggles DEBUG output.
func (l *Logger) SetDebug(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugOn = on
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) emit(dst *log.Logger, lv level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ts := l.timestamp()

	l.mu.Lock()
	capture := l.capture
	l.mu.Unlock()

	if l.colorless {
		dst.Printf("[%s] %s %s\n", ts, lv.name, msg)
	} else {
		dst.Printf("[%s] %s%s\033[0m %s\n", ts, lv.color, lv.name, msg)
	}
	if capture != nil {
		l.mu.Lock()
		fmt.Fprintf(capture, "%s - %s - %s\n", ts, lv.name, msg)
		l.mu.Unlock()
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(l.info, levelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(l.warn, levelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(l.err, levelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.mu.Lock()
	on := l.debugOn
	l.mu.Unlock()
	if !on {
		return
	}
	l.emit(l.debug, levelDebug, format, args...)
}
