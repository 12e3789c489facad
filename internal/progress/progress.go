// Package progress carries batch progress to the caller and keeps the
// per-file error log.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink receives incremental progress: a completion fraction in [0,1] and the
// file currently being processed. Purely observational; calls never block
// the batch.
type Sink func(fraction float64, message string)

// Discard is a Sink that drops all progress reports.
func Discard(float64, string) {}

// ErrorEntry is one logged per-file failure.
type ErrorEntry struct {
	File      string
	Error     string
	Timestamp time.Time
}

// ErrorLogger appends per-file failures to a log file. A logger created with
// an empty path records entries in memory only.
type ErrorLogger struct {
	mu      sync.Mutex
	logFile string
	errors  []ErrorEntry
	file    *os.File
}

// NewErrorLogger creates an error logger appending to logFile.
func NewErrorLogger(logFile string) (*ErrorLogger, error) {
	logger := &ErrorLogger{logFile: logFile}

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		logger.file = file
	}

	return logger, nil
}

// Log records a failure for a file.
func (l *ErrorLogger) Log(filePath, errorMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := ErrorEntry{
		File:      filePath,
		Error:     errorMsg,
		Timestamp: time.Now(),
	}
	l.errors = append(l.errors, entry)

	if l.file != nil {
		line := fmt.Sprintf("%s | %s | %s\n",
			entry.Timestamp.Format(time.RFC3339),
			filepath.Base(filePath),
			errorMsg)
		l.file.WriteString(line)
	}
}

// Summary returns a one-line summary of logged failures.
func (l *ErrorLogger) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.errors) == 0 {
		return "No errors"
	}
	if l.logFile == "" {
		return fmt.Sprintf("%d errors", len(l.errors))
	}
	return fmt.Sprintf("%d errors logged to %s", len(l.errors), l.logFile)
}

// ErrorCount returns the number of logged failures.
func (l *ErrorLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// Close closes the log file.
func (l *ErrorLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
