package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	MaxLogSize  = 10 * 1024 * 1024 // 10MB
	LogFileName = "uartref.log"
)

var (
	logFile     *os.File
	mu          sync.Mutex
	initialized bool

	// Logging is disabled until Init runs. The CLIs use stdout as their
	// user interface, so nothing may leak onto the terminal unasked.
	out = log.New(io.Discard, "", 0)
)

// Init directs log output to a file in dir, or to stderr when dir is
// empty. Idempotent.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}

	if dir == "" {
		out = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
		initialized = true
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	logPath := filepath.Join(dir, LogFileName)
	rotateIfNeeded(logPath)

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	logFile = file
	out = log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	initialized = true

	Info("Logger initialized")
	return nil
}

// rotateIfNeeded archives an oversized log so a run starts with room to
// write. Only the newest archive is kept.
func rotateIfNeeded(logPath string) {
	info, err := os.Stat(logPath)
	if err != nil || info.Size() < MaxLogSize {
		return
	}

	archive := logPath + "." + time.Now().Format("20060102-150405")
	os.Rename(logPath, archive)

	matches, _ := filepath.Glob(logPath + ".*")
	for _, m := range matches {
		if m != archive {
			os.Remove(m)
		}
	}
}

// Close closes the log file if one is open and disables logging again.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	out = log.New(io.Discard, "", 0)
	initialized = false
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	out.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	out.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	out.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Protocol logs one line of wire traffic. Direction is "TX" or "RX".
func Protocol(direction, line string) {
	out.Printf("[PROTO] %s %q", direction, line)
}
