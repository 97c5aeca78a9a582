package loadgen

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/okian/vendorhub/pkg/logger"
)

// SetupLogging returns a logger writing to stdout and, when logFile is set,
// to that file as well. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (logger.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if logFile == "" {
		return logger.NewWithWriter(os.Stdout, level), func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return logger.NewWithWriter(io.MultiWriter(os.Stdout, file), level), file.Close, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `vendorhub load generator
========================

Creates vendors, rates them concurrently and checks that every reported
average matches the ratings the service acknowledged.

Usage:
  loadgen [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -vendors int       Number of vendors to create (default 100)
  -feedback int      Ratings submitted per vendor (default 20)
  -workers int       Concurrent requests (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write a JSON report to this file
  -log string        Also write logs to this file
  -verbose           Log every failed request
  -help              Show this help message

Examples:
  loadgen -vendors 500 -feedback 40 -workers 32
  loadgen -url http://localhost:8080 -output report.json
`)
}
