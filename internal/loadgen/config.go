// Package loadgen drives a running vendorhub over HTTP: it creates vendors,
// rates them concurrently and checks the averages the service reports.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL           string        // Base URL of the service
	Vendors           int           // Number of vendors to create
	FeedbackPerVendor int           // Ratings submitted for each vendor
	Workers           int           // Number of concurrent requests
	Timeout           time.Duration // HTTP request timeout
	OutputFile        string        // Report file; empty skips the report
	Verbose           bool          // Log every failed request
}

// Stats holds run statistics.
type Stats struct {
	VendorsCreated     int           `json:"vendors_created"`
	VendorsFailed      int           `json:"vendors_failed"`
	FeedbackSubmitted  int           `json:"feedback_submitted"`
	FeedbackSuccessful int           `json:"feedback_successful"`
	FeedbackThrottled  int           `json:"feedback_throttled"`
	FeedbackFailed     int           `json:"feedback_failed"`
	AveragesVerified   int           `json:"averages_verified"`
	AveragesMismatched int           `json:"averages_mismatched"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"duration"`
}

// plan is the expected state of one vendor after the run.
type plan struct {
	VendorID uint64    `json:"vendor_id"`
	Name     string    `json:"name"`
	Ratings  []float32 `json:"ratings"`
	Accepted []bool    `json:"accepted"`
}

// accepted returns the ratings the service acknowledged.
func (p *plan) accepted() []float32 {
	out := make([]float32, 0, len(p.Ratings))
	for i, r := range p.Ratings {
		if p.Accepted[i] {
			out = append(out, r)
		}
	}
	return out
}

// ratingResponse mirrors GET /vendors/{id}/rating.
type ratingResponse struct {
	VendorID uint64  `json:"vendor_id"`
	Average  float64 `json:"average"`
}
