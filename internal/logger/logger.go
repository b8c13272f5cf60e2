// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger configures structured logging for zhai.
//
// All packages log through charmbracelet/log. Components take a
// *log.Logger in their config and fall back to WithPrefix(component)
// when none is given. The TUI owns the terminal, so in TUI mode logs
// go to a file or nowhere.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	current = newLogger(os.Stderr, log.InfoLevel)
	logFile *os.File
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.New(w)
	l.SetTimeFormat("")
	l.SetLevel(level)
	return l
}

// Options controls Configure.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives all output (appended, 0600).
	File string
	// Quiet discards output unless File is set. Used while the TUI runs.
	Quiet bool
	// TestMode discards everything regardless of the other fields.
	TestMode bool
}

// Configure replaces the process logger. It may be called more than once;
// a previously opened log file is closed.
func Configure(opts Options) error {
	level := ParseLevel(opts.Level)

	var out io.Writer = os.Stderr
	var file *os.File
	switch {
	case opts.TestMode:
		out = io.Discard
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		out, file = f, f
	case opts.Quiet:
		out = io.Discard
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	current = newLogger(out, level)
	if file != nil {
		current.SetReportTimestamp(true)
		current.SetTimeFormat("2006-01-02 15:04:05")
	}
	return nil
}

// Close closes the log file, if any, and reverts to stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	current = newLogger(os.Stderr, current.GetLevel())
	return err
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default returns the process logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WithPrefix returns a child of the process logger tagged with a
// component name.
func WithPrefix(prefix string) *log.Logger {
	return Default().WithPrefix(prefix)
}

// Discard returns a logger that drops everything. Tests pass it to
// components to keep output clean.
func Discard() *log.Logger {
	return newLogger(io.Discard, log.DebugLevel)
}

// Debug logs at debug level on the process logger.
func Debug(msg interface{}, keyvals ...interface{}) {
	Default().Debug(msg, keyvals...)
}

// Info logs at info level on the process logger.
func Info(msg interface{}, keyvals ...interface{}) {
	Default().Info(msg, keyvals...)
}

// Warn logs at warn level on the process logger.
func Warn(msg interface{}, keyvals ...interface{}) {
	Default().Warn(msg, keyvals...)
}

// Error logs at error level on the process logger.
func Error(msg interface{}, keyvals ...interface{}) {
	Default().Error(msg, keyvals...)
}
