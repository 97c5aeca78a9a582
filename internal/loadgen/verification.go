package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/pkg/logger"
)

// verifyAverages compares each vendor's reported average with the mean of
// its acknowledged ratings. A vendor with none must answer 404.
func verifyAverages(ctx context.Context, cfg *Config, client *HTTPClient, log logger.Logger,
	plans []*plan, stats *Stats) error {
	var verified, mismatched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, p := range plans {
		if p.VendorID == 0 {
			continue
		}
		g.Go(func() error {
			err := checkAverage(gctx, client, p)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err != nil {
				mismatched.Add(1)
				log.Warn(gctx, "average mismatch", logger.Uint64("vendorID", p.VendorID), logger.Error(err))
				return nil
			}
			verified.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.AveragesVerified = int(verified.Load())
	stats.AveragesMismatched = int(mismatched.Load())
	if stats.AveragesMismatched > 0 {
		return fmt.Errorf("%w: %d of %d vendors", ErrVerification,
			stats.AveragesMismatched, stats.AveragesMismatched+stats.AveragesVerified)
	}
	log.Info(ctx, "averages verified", logger.Int("vendors", stats.AveragesVerified))
	return nil
}

func checkAverage(ctx context.Context, client *HTTPClient, p *plan) error {
	want, ok := rating.Average(p.accepted())

	var got ratingResponse
	err := client.getJSON(ctx, fmt.Sprintf("/vendors/%d/rating", p.VendorID), &got)
	if !ok {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("expected 404 for unrated vendor, got %v (average %v)", err, got.Average)
	}
	if err != nil {
		return err
	}
	return compareAverage(want, got.Average)
}

func compareAverage(want, got float64) error {
	if math.Abs(want-got) > averageTolerance {
		return fmt.Errorf("expected average %.6f, service reported %.6f", want, got)
	}
	return nil
}
