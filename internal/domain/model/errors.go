package model

import "errors"

// Sentinels a *Message matches with errors.Is, one per failure kind.
var (
	ErrGeneric        = errors.New("operation failed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
)

// ErrBackpressure reports that a write was refused because the write queue
// is full. Nothing was written; the caller may retry.
var ErrBackpressure = errors.New("write queue full")

// ErrUnconfirmed reports that a write was queued but the caller stopped
// waiting for it. The write may still commit.
var ErrUnconfirmed = errors.New("write not confirmed")

// Messages returned by domain operations.
const (
	MsgMissingFields      = "Missing required fields"
	MsgVendorNotFound     = "Vendor not found"
	MsgNoVendors          = "No vendors found"
	MsgNoServices         = "No services found for this vendor"
	MsgNoContracts        = "No contracts found for this vendor"
	MsgInvalidFeedback    = "Invalid feedback data"
	MsgNoFeedback         = "No feedback found for this vendor"
	MsgNoRatings          = "No ratings available for this vendor"
	MsgRecordTooLarge     = "Payload exceeds maximum record size"
	MsgRatingCapacityFull = "Vendor rating capacity exhausted"
)
