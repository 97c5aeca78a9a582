package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/vendorhub/internal/loadgen"
	"github.com/okian/vendorhub/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", loadgen.DefaultBaseURL, "Base URL of the service")
		vendors    = flag.Int("vendors", loadgen.DefaultVendors, "Number of vendors to create")
		feedback   = flag.Int("feedback", loadgen.DefaultFeedbackPerVendor, "Ratings submitted per vendor")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent requests")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write a JSON report to this file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every failed request")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp(os.Stdout)
		return
	}

	log, closeLog, err := loadgen.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)

	_, err = loadgen.Run(ctx, &loadgen.Config{
		BaseURL:           *baseURL,
		Vendors:           *vendors,
		FeedbackPerVendor: *feedback,
		Workers:           *workers,
		Timeout:           *timeout,
		OutputFile:        *outputFile,
		Verbose:           *verbose,
	}, log)
	cancel()
	stop()

	if err != nil {
		log.Error(context.Background(), "load run failed", logger.Error(err))
	}
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}
