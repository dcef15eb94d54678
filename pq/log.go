package pq

import (
	"io"
	"log"
	"os"
	"time"
)

var (
	// Verbose enables Debug output
	Verbose = false

	debugLog = log.New(os.Stderr, "DEBUG: ", 0)
	errorLog = log.New(os.Stderr, "ERROR: ", 0)
	warnLog  = log.New(os.Stderr, "WARNING: ", 0)
	statLog  = log.New(os.Stderr, "", 0)
)

// SetLogOutput redirects every log line written by the package
func SetLogOutput(w io.Writer) {
	for _, l := range []*log.Logger{debugLog, errorLog, warnLog, statLog} {
		l.SetOutput(w)
	}
}

// Debug logs a message when Verbose is set
func Debug(format string, args ...interface{}) {
	if Verbose {
		debugLog.Printf(format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	errorLog.Printf(format, args...)
}

// Warn logs a warning
func Warn(format string, args ...interface{}) {
	warnLog.Printf(format, args...)
}

// Status logs a progress line when count is a multiple of every
func Status(name string, count, every int64) {
	if every > 0 && count%every == 0 {
		stamp := time.Now().Format("2006.01.02 15.04.05")
		statLog.Printf("%s: (%s) Record %20d", stamp, name, count)
	}
}
