package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/pkg/logger"
)

// ErrVerification is returned when a reported average disagrees with the
// ratings the service acknowledged.
var ErrVerification = errors.New("average verification failed")

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	cfg.Normalize()
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("vendors", cfg.Vendors),
		logger.Int("feedbackPerVendor", cfg.FeedbackPerVendor),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	if err := client.checkHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	payloads, plans := generatePlans(uuid.NewString()[:8], cfg)

	if err := createVendors(ctx, cfg, client, log, payloads, plans, stats); err != nil {
		return stats, fmt.Errorf("vendor creation failed: %w", err)
	}
	if err := submitFeedback(ctx, cfg, client, log, plans, stats); err != nil {
		return stats, fmt.Errorf("feedback submission failed: %w", err)
	}
	verr := verifyAverages(ctx, cfg, client, log, plans, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, stats, plans); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", cfg.OutputFile))
		}
	}
	displayFinalStats(ctx, log, stats)
	return stats, verr
}

// createVendors creates every vendor and records the assigned ids. Vendors
// that fail keep id 0 and are skipped afterwards.
func createVendors(ctx context.Context, cfg *Config, client *HTTPClient, log logger.Logger,
	payloads []model.CreateVendorPayload, plans []*plan, stats *Stats) error {
	var created, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range payloads {
		g.Go(func() error {
			var v model.Vendor
			if err := client.postJSON(gctx, "/vendors", payloads[i], &v); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "create vendor failed", logger.Int("index", i), logger.Error(err))
				}
				return nil
			}
			plans[i].VendorID = v.ID
			created.Add(1)
			return nil
		})
	}
	err := g.Wait()

	stats.VendorsCreated = int(created.Load())
	stats.VendorsFailed = int(failed.Load())
	log.Info(ctx, "vendors created",
		logger.Int("created", stats.VendorsCreated),
		logger.Int("failed", stats.VendorsFailed))
	return err
}

// submitFeedback rates every created vendor. All ratings are in flight at
// once, interleaved across vendors.
func submitFeedback(ctx context.Context, cfg *Config, client *HTTPClient, log logger.Logger,
	plans []*plan, stats *Stats) error {
	var submitted, successful, throttled, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for j := range cfg.FeedbackPerVendor {
		for _, p := range plans {
			if p.VendorID == 0 {
				continue
			}
			g.Go(func() error {
				submitted.Add(1)
				payload := model.CreateFeedbackPayload{
					VendorID: p.VendorID,
					UserID:   uint64(j + 1),
					Rating:   p.Ratings[j],
					Comment:  "load run rating " + strconv.Itoa(j),
				}
				err := client.postJSON(gctx, "/feedback", payload, nil)
				switch {
				case err == nil:
					p.Accepted[j] = true
					successful.Add(1)
				case gctx.Err() != nil:
					return gctx.Err()
				case errors.Is(err, ErrThrottled):
					throttled.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(gctx, "submit feedback failed",
							logger.Uint64("vendorID", p.VendorID), logger.Error(err))
					}
				}
				return nil
			})
		}
	}
	err := g.Wait()

	stats.FeedbackSubmitted = int(submitted.Load())
	stats.FeedbackSuccessful = int(successful.Load())
	stats.FeedbackThrottled = int(throttled.Load())
	stats.FeedbackFailed = int(failed.Load())
	log.Info(ctx, "feedback submitted",
		logger.Int("submitted", stats.FeedbackSubmitted),
		logger.Int("successful", stats.FeedbackSuccessful),
		logger.Int("throttled", stats.FeedbackThrottled),
		logger.Int("failed", stats.FeedbackFailed))
	return err
}

// saveReport writes stats and per-vendor plans as JSON.
func saveReport(filename string, stats *Stats, plans []*plan) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(struct {
		Stats   *Stats  `json:"stats"`
		Vendors []*plan `json:"vendors"`
	}{stats, plans}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.FeedbackSubmitted > 0 {
		successRate = float64(stats.FeedbackSuccessful) / float64(stats.FeedbackSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.VendorsCreated+stats.FeedbackSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("vendorsCreated", stats.VendorsCreated),
		logger.Int("vendorsFailed", stats.VendorsFailed),
		logger.Int("feedbackSubmitted", stats.FeedbackSubmitted),
		logger.Int("feedbackSuccessful", stats.FeedbackSuccessful),
		logger.Int("feedbackThrottled", stats.FeedbackThrottled),
		logger.Int("feedbackFailed", stats.FeedbackFailed),
		logger.Int("averagesVerified", stats.AveragesVerified),
		logger.Int("averagesMismatched", stats.AveragesMismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("writesPerSecond", perSecond))
}
