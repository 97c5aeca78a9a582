package repository

import (
	"fmt"

	"github.com/okian/vendorhub/internal/domain/model"
)

// Tx gives an Update or View callback typed access to the collections.
// A Tx is only valid inside the callback that received it.
type Tx struct {
	s        *Store
	writable bool
	wrote    bool
}

// NextID allocates the next identifier. Allocation is durable even if the
// caller never uses the id.
func (tx *Tx) NextID() (uint64, error) {
	if !tx.writable {
		return 0, ErrReadOnly
	}
	tx.wrote = true
	id, err := tx.s.ids.Next()
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return id, nil
}

// VendorExists reports whether a vendor with id exists.
func (tx *Tx) VendorExists(id uint64) bool {
	return tx.s.vendors.Contains(id)
}

// Vendor returns the vendor with id.
func (tx *Tx) Vendor(id uint64) (model.Vendor, bool, error) {
	return tx.s.vendors.Get(id)
}

// Vendors returns every vendor in ascending id order.
func (tx *Tx) Vendors() ([]model.Vendor, error) {
	entries, err := tx.s.vendors.Snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]model.Vendor, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

// ServicesByVendor returns the vendor's services in ascending id order.
func (tx *Tx) ServicesByVendor(vendorID uint64) ([]model.Service, error) {
	return tx.s.services.Filter(func(s model.Service) bool { return s.VendorID == vendorID })
}

// ContractsByVendor returns the vendor's contracts in ascending id order.
func (tx *Tx) ContractsByVendor(vendorID uint64) ([]model.Contract, error) {
	return tx.s.contracts.Filter(func(c model.Contract) bool { return c.VendorID == vendorID })
}

// FeedbackByVendor returns the vendor's feedback in ascending id order.
func (tx *Tx) FeedbackByVendor(vendorID uint64) ([]model.Feedback, error) {
	return tx.s.feedback.Filter(func(f model.Feedback) bool { return f.VendorID == vendorID })
}

// PutVendor stores v under v.ID.
func (tx *Tx) PutVendor(v model.Vendor) error {
	if err := tx.begin(); err != nil {
		return err
	}
	if err := tx.s.vendors.Insert(v.ID, v); err != nil {
		return fmt.Errorf("put vendor %d: %w", v.ID, err)
	}
	return nil
}

// PutService stores svc under svc.ID.
func (tx *Tx) PutService(svc model.Service) error {
	if err := tx.begin(); err != nil {
		return err
	}
	if err := tx.s.services.Insert(svc.ID, svc); err != nil {
		return fmt.Errorf("put service %d: %w", svc.ID, err)
	}
	return nil
}

// PutContract stores c under c.ID.
func (tx *Tx) PutContract(c model.Contract) error {
	if err := tx.begin(); err != nil {
		return err
	}
	if err := tx.s.contracts.Insert(c.ID, c); err != nil {
		return fmt.Errorf("put contract %d: %w", c.ID, err)
	}
	return nil
}

// PutFeedback stores f under f.ID.
func (tx *Tx) PutFeedback(f model.Feedback) error {
	if err := tx.begin(); err != nil {
		return err
	}
	if err := tx.s.feedback.Insert(f.ID, f); err != nil {
		return fmt.Errorf("put feedback %d: %w", f.ID, err)
	}
	return nil
}

func (tx *Tx) begin() error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.wrote = true
	return nil
}
