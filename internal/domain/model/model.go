// Package model contains domain models passed between layers.
package model

// Vendor is a supplier known to the system. Ratings grow by one entry per
// accepted feedback; nothing else changes after creation.
type Vendor struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Services  []string  `json:"services"` // free-text offering names, independent of Service records
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Ratings   []float32 `json:"ratings"`
	CreatedAt uint64    `json:"created_at"` // unix nanoseconds
}

// Service is an offering priced by a vendor.
type Service struct {
	ID          uint64 `json:"id"`
	VendorID    uint64 `json:"vendor_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       uint64 `json:"price"`
	IsAvailable bool   `json:"is_available"`
}

// Contract binds a vendor to a department for a period.
type Contract struct {
	ID           uint64 `json:"id"`
	VendorID     uint64 `json:"vendor_id"`
	DepartmentID uint64 `json:"department_id"`
	StartDate    uint64 `json:"start_date"`
	EndDate      uint64 `json:"end_date"`
	Terms        string `json:"terms"`
	IsActive     bool   `json:"is_active"`
}

// Feedback is a user's rating of a vendor.
type Feedback struct {
	ID        uint64  `json:"id"`
	VendorID  uint64  `json:"vendor_id"`
	UserID    uint64  `json:"user_id"`
	Rating    float32 `json:"rating"`
	Comment   string  `json:"comment"`
	Timestamp uint64  `json:"timestamp"` // unix nanoseconds
}

// CreateVendorPayload carries the caller-supplied vendor fields.
type CreateVendorPayload struct {
	Name     string   `json:"name" validate:"required"`
	Services []string `json:"services"`
	Contact  string   `json:"contact" validate:"required"`
	Email    string   `json:"email" validate:"required"`
	Address  string   `json:"address"`
}

// CreateServicePayload carries the caller-supplied service fields.
// VendorID is checked for existence, not validated.
type CreateServicePayload struct {
	VendorID    uint64 `json:"vendor_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Price       uint64 `json:"price" validate:"gt=0"`
}

// CreateContractPayload carries the caller-supplied contract fields.
type CreateContractPayload struct {
	VendorID     uint64 `json:"vendor_id" validate:"required"`
	DepartmentID uint64 `json:"department_id" validate:"required"`
	StartDate    uint64 `json:"start_date" validate:"required"`
	EndDate      uint64 `json:"end_date" validate:"required"`
	Terms        string `json:"terms"`
}

// CreateFeedbackPayload carries the caller-supplied feedback fields.
type CreateFeedbackPayload struct {
	VendorID uint64  `json:"vendor_id" validate:"required"`
	UserID   uint64  `json:"user_id" validate:"required"`
	Rating   float32 `json:"rating" validate:"gte=0,lte=5"`
	Comment  string  `json:"comment"`
}
