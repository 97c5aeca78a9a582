package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/internal/storage/codec"
)

// CreateVendor stores a new vendor with no ratings.
func (s *Service) CreateVendor(ctx context.Context, p model.CreateVendorPayload) (_ model.Vendor, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Vendor{}, ErrNotStarted
	}
	ctx, finish := s.begin(ctx, "CreateVendor")
	defer func() { finish(err) }()

	if s.rejected(ctx, "CreateVendor", s.validate.Check(p)) {
		return model.Vendor{}, model.InvalidPayload(model.MsgMissingFields)
	}
	draft := model.Vendor{
		Name:     p.Name,
		Services: append([]string{}, p.Services...),
		Contact:  p.Contact,
		Email:    p.Email,
		Address:  p.Address,
		Ratings:  []float32{},
	}
	if err := fits(model.VendorCodec{}, draft); err != nil {
		return model.Vendor{}, err
	}

	var created model.Vendor
	err = s.submit(ctx, "CreateVendor", func(tx *repository.Tx) error {
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		v := draft
		v.ID = id
		v.CreatedAt = uint64(s.now().UnixNano())
		if err := tx.PutVendor(v); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return model.Vendor{}, err
	}
	return created, nil
}

// GetVendorByID returns the vendor with id.
func (s *Service) GetVendorByID(ctx context.Context, id uint64) (_ model.Vendor, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Vendor{}, ErrNotStarted
	}
	_, finish := s.begin(ctx, "GetVendorByID")
	defer func() { finish(err) }()

	var v model.Vendor
	err = s.store.View(func(tx *repository.Tx) error {
		var ok bool
		var err error
		v, ok, err = tx.Vendor(id)
		if err != nil {
			return fmt.Errorf("get vendor %d: %w", id, err)
		}
		if !ok {
			return model.NotFound(model.MsgVendorNotFound)
		}
		return nil
	})
	if err != nil {
		return model.Vendor{}, err
	}
	return v, nil
}

// ListAllVendors returns every vendor in ascending id order.
func (s *Service) ListAllVendors(ctx context.Context) (_ []model.Vendor, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	_, finish := s.begin(ctx, "ListAllVendors")
	defer func() { finish(err) }()

	var vendors []model.Vendor
	err = s.store.View(func(tx *repository.Tx) error {
		var err error
		vendors, err = tx.Vendors()
		if err != nil {
			return fmt.Errorf("list vendors: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vendors) == 0 {
		return nil, model.NotFound(model.MsgNoVendors)
	}
	return vendors, nil
}

// CalculateAverageRating returns the mean of the vendor's ratings.
func (s *Service) CalculateAverageRating(ctx context.Context, vendorID uint64) (_ float64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotStarted
	}
	_, finish := s.begin(ctx, "CalculateAverageRating")
	defer func() { finish(err) }()

	ratings, err := s.ratings(vendorID)
	if err != nil {
		return 0, err
	}
	avg, ok := rating.Average(ratings)
	if !ok {
		return 0, model.NotFound(model.MsgNoRatings)
	}
	return avg, nil
}

// RatingSummary returns count, mean and extremes of the vendor's ratings.
func (s *Service) RatingSummary(ctx context.Context, vendorID uint64) (_ rating.Summary, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return rating.Summary{}, ErrNotStarted
	}
	_, finish := s.begin(ctx, "RatingSummary")
	defer func() { finish(err) }()

	ratings, err := s.ratings(vendorID)
	if err != nil {
		return rating.Summary{}, err
	}
	sum, ok := rating.Summarize(ratings)
	if !ok {
		return rating.Summary{}, model.NotFound(model.MsgNoRatings)
	}
	return sum, nil
}

func (s *Service) ratings(vendorID uint64) ([]float32, error) {
	var ratings []float32
	err := s.store.View(func(tx *repository.Tx) error {
		v, ok, err := tx.Vendor(vendorID)
		if err != nil {
			return fmt.Errorf("get vendor %d: %w", vendorID, err)
		}
		if !ok {
			return model.NotFound(model.MsgVendorNotFound)
		}
		ratings = v.Ratings
		return nil
	})
	return ratings, err
}

// fits rejects a record whose encoding would exceed the slot bound. Ids and
// timestamps are fixed-width, so a draft without them measures the same.
func fits[T any](c codec.Codec[T], draft T) error {
	if _, err := codec.Marshal(c, draft); err != nil {
		if errors.Is(err, codec.ErrRecordTooLarge) {
			return model.InvalidPayload(model.MsgRecordTooLarge)
		}
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
