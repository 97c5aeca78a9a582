package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/rating"
	"github.com/okian/vendorhub/internal/storage/codec"
	"github.com/okian/vendorhub/pkg/metrics"
)

// CreateService stores a new, available service for an existing vendor.
func (s *Service) CreateService(ctx context.Context, p model.CreateServicePayload) (_ model.Service, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Service{}, ErrNotStarted
	}
	ctx, finish := s.begin(ctx, "CreateService")
	defer func() { finish(err) }()

	if s.rejected(ctx, "CreateService", s.validate.Check(p)) {
		return model.Service{}, model.InvalidPayload(model.MsgMissingFields)
	}
	draft := model.Service{
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsAvailable: true,
	}
	if err := fits(model.ServiceCodec{}, draft); err != nil {
		return model.Service{}, err
	}

	var created model.Service
	err = s.submit(ctx, "CreateService", func(tx *repository.Tx) error {
		if !tx.VendorExists(p.VendorID) {
			return model.NotFound(model.MsgVendorNotFound)
		}
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		svc := draft
		svc.ID = id
		if err := tx.PutService(svc); err != nil {
			return err
		}
		created = svc
		return nil
	})
	if err != nil {
		return model.Service{}, err
	}
	return created, nil
}

// GetServicesByVendorID returns the vendor's services in ascending id order.
func (s *Service) GetServicesByVendorID(ctx context.Context, vendorID uint64) (_ []model.Service, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	_, finish := s.begin(ctx, "GetServicesByVendorID")
	defer func() { finish(err) }()

	var out []model.Service
	err = s.store.View(func(tx *repository.Tx) error {
		var err error
		out, err = tx.ServicesByVendor(vendorID)
		if err != nil {
			return fmt.Errorf("filter services: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, model.NotFound(model.MsgNoServices)
	}
	return out, nil
}

// CreateContract stores a new, active contract for an existing vendor.
// Dates are opaque; start and end are not compared.
func (s *Service) CreateContract(ctx context.Context, p model.CreateContractPayload) (_ model.Contract, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Contract{}, ErrNotStarted
	}
	ctx, finish := s.begin(ctx, "CreateContract")
	defer func() { finish(err) }()

	if s.rejected(ctx, "CreateContract", s.validate.Check(p)) {
		return model.Contract{}, model.InvalidPayload(model.MsgMissingFields)
	}
	draft := model.Contract{
		VendorID:     p.VendorID,
		DepartmentID: p.DepartmentID,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Terms:        p.Terms,
		IsActive:     true,
	}
	if err := fits(model.ContractCodec{}, draft); err != nil {
		return model.Contract{}, err
	}

	var created model.Contract
	err = s.submit(ctx, "CreateContract", func(tx *repository.Tx) error {
		if !tx.VendorExists(p.VendorID) {
			return model.NotFound(model.MsgVendorNotFound)
		}
		id, err := tx.NextID()
		if err != nil {
			return err
		}
		c := draft
		c.ID = id
		if err := tx.PutContract(c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return model.Contract{}, err
	}
	return created, nil
}

// GetContractsByVendorID returns the vendor's contracts in ascending id order.
func (s *Service) GetContractsByVendorID(ctx context.Context, vendorID uint64) (_ []model.Contract, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	_, finish := s.begin(ctx, "GetContractsByVendorID")
	defer func() { finish(err) }()

	var out []model.Contract
	err = s.store.View(func(tx *repository.Tx) error {
		var err error
		out, err = tx.ContractsByVendor(vendorID)
		if err != nil {
			return fmt.Errorf("filter contracts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, model.NotFound(model.MsgNoContracts)
	}
	return out, nil
}

// CreateFeedback stores a feedback record and appends its rating to the
// vendor. Both writes happen under one write lock; every check runs before
// the first of them.
func (s *Service) CreateFeedback(ctx context.Context, p model.CreateFeedbackPayload) (_ model.Feedback, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Feedback{}, ErrNotStarted
	}
	ctx, finish := s.begin(ctx, "CreateFeedback")
	defer func() { finish(err) }()

	if s.rejected(ctx, "CreateFeedback", s.validate.Check(p)) || !rating.InRange(p.Rating) {
		return model.Feedback{}, model.InvalidPayload(model.MsgInvalidFeedback)
	}
	draft := model.Feedback{
		VendorID: p.VendorID,
		UserID:   p.UserID,
		Rating:   p.Rating,
		Comment:  p.Comment,
	}
	if err := fits(model.FeedbackCodec{}, draft); err != nil {
		return model.Feedback{}, err
	}

	var created model.Feedback
	err = s.submit(ctx, "CreateFeedback", func(tx *repository.Tx) error {
		v, ok, err := tx.Vendor(p.VendorID)
		if err != nil {
			return fmt.Errorf("get vendor %d: %w", p.VendorID, err)
		}
		if !ok {
			return model.NotFound(model.MsgVendorNotFound)
		}
		v.Ratings = append(v.Ratings, p.Rating)
		if _, err := codec.Marshal(model.VendorCodec{}, v); err != nil {
			if errors.Is(err, codec.ErrRecordTooLarge) {
				return model.Failure(model.MsgRatingCapacityFull)
			}
			return fmt.Errorf("encode vendor %d: %w", v.ID, err)
		}

		id, err := tx.NextID()
		if err != nil {
			return err
		}
		fb := draft
		fb.ID = id
		fb.Timestamp = uint64(s.now().UnixNano())
		// feedback first: recovery re-derives a missing rating from it
		if err := tx.PutFeedback(fb); err != nil {
			return err
		}
		if err := tx.PutVendor(v); err != nil {
			return err
		}
		created = fb
		return nil
	})
	if err != nil {
		return model.Feedback{}, err
	}
	metrics.RecordRating()
	return created, nil
}

// GetFeedbackByVendorID returns the vendor's feedback in ascending id order.
func (s *Service) GetFeedbackByVendorID(ctx context.Context, vendorID uint64) (_ []model.Feedback, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	_, finish := s.begin(ctx, "GetFeedbackByVendorID")
	defer func() { finish(err) }()

	var out []model.Feedback
	err = s.store.View(func(tx *repository.Tx) error {
		var err error
		out, err = tx.FeedbackByVendor(vendorID)
		if err != nil {
			return fmt.Errorf("filter feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, model.NotFound(model.MsgNoFeedback)
	}
	return out, nil
}
