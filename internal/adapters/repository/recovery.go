package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/storage/codec"
	"github.com/okian/vendorhub/pkg/logger"
	"github.com/okian/vendorhub/pkg/metrics"
)

// reconcile repairs state a crash can leave behind:
//   - the id counter must not trail any stored key;
//   - a vendor must carry one rating per feedback record. Feedback is written
//     before the vendor, so a torn write leaves the vendor short by a suffix
//     of its feedback in id order.
func (s *Store) reconcile(ctx context.Context) error {
	var maxKey uint64
	for _, k := range []uint64{s.vendors.MaxKey(), s.services.MaxKey(), s.contracts.MaxKey(), s.feedback.MaxKey()} {
		maxKey = max(maxKey, k)
	}
	if cur := s.ids.Current(); maxKey > cur {
		s.log.Warn(ctx, "id counter behind stored keys, restoring",
			logger.Uint64("counter", cur),
			logger.Uint64("max_key", maxKey),
		)
		if err := s.ids.Restore(maxKey); err != nil {
			return fmt.Errorf("restore id counter: %w", err)
		}
	}

	entries, err := s.feedback.Snapshot()
	if err != nil {
		return fmt.Errorf("scan %s: %w", NameFeedback, err)
	}
	byVendor := make(map[uint64][]model.Feedback)
	var order []uint64
	for _, e := range entries {
		if _, ok := byVendor[e.Value.VendorID]; !ok {
			order = append(order, e.Value.VendorID)
		}
		byVendor[e.Value.VendorID] = append(byVendor[e.Value.VendorID], e.Value)
	}

	for _, vid := range order {
		fbs := byVendor[vid]
		v, ok, err := s.vendors.Get(vid)
		if err != nil {
			return fmt.Errorf("load vendor %d: %w", vid, err)
		}
		if !ok {
			s.log.Warn(ctx, "feedback references missing vendor", logger.Uint64("vendor_id", vid))
			metrics.RecordErrorByComponent("repository", "orphan_feedback")
			continue
		}
		switch {
		case len(v.Ratings) == len(fbs):
			continue
		case len(v.Ratings) > len(fbs):
			s.log.Warn(ctx, "vendor has more ratings than feedback records",
				logger.Uint64("vendor_id", vid),
				logger.Int("ratings", len(v.Ratings)),
				logger.Int("feedback", len(fbs)),
			)
			continue
		}

		missing := fbs[len(v.Ratings):]
		for _, f := range missing {
			v.Ratings = append(v.Ratings, f.Rating)
		}
		if err := s.vendors.Insert(vid, v); err != nil {
			if errors.Is(err, codec.ErrRecordTooLarge) {
				s.log.Error(ctx, "cannot repair vendor ratings", logger.Uint64("vendor_id", vid), logger.Error(err))
				metrics.RecordErrorByComponent("repository", "repair_too_large")
				continue
			}
			return fmt.Errorf("repair vendor %d: %w", vid, err)
		}
		metrics.RecordRecoveryRepair()
		s.log.Warn(ctx, "repaired vendor ratings after torn write",
			logger.Uint64("vendor_id", vid),
			logger.Int("appended", len(missing)),
		)
	}
	return nil
}
