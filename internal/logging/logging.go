package logging

import (
	"io"
	"log"
	"os"
)

var (
	disabled = false
	verbose  = false
	logger   = log.New(os.Stdout, "", log.LstdFlags)
)

// Disable turns off all logging
func Disable() {
	disabled = true
}

// Enable turns logging back on
func Enable() {
	disabled = false
}

// SetVerbose toggles debug-level output
func SetVerbose(on bool) {
	verbose = on
}

// SetOutput redirects log output, mainly for tests
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Info logs an info message
func Info(v ...any) {
	if !disabled {
		logger.Println(append([]any{"INFO"}, v...)...)
	}
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	if !disabled {
		logger.Printf("INFO "+format, v...)
	}
}

// Warn logs a warning message
func Warn(v ...any) {
	if !disabled {
		logger.Println(append([]any{"WARN"}, v...)...)
	}
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	if !disabled {
		logger.Printf("WARN "+format, v...)
	}
}

// Error logs an error message
func Error(v ...any) {
	if !disabled {
		logger.Println(append([]any{"ERROR"}, v...)...)
	}
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	if !disabled {
		logger.Printf("ERROR "+format, v...)
	}
}

// Debug logs a debug message when verbose mode is on
func Debug(v ...any) {
	if !disabled && verbose {
		logger.Println(append([]any{"DEBUG"}, v...)...)
	}
}

// Debugf logs a formatted debug message when verbose mode is on
func Debugf(format string, v ...any) {
	if !disabled && verbose {
		logger.Printf("DEBUG "+format, v...)
	}
}
