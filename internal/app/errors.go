package service

import (
	"errors"

	"github.com/okian/vendorhub/internal/domain/model"
)

var (
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrBackpressure is returned when the write queue is full.
	ErrBackpressure = model.ErrBackpressure

	// ErrUnconfirmed is returned when ctx ends after a write was queued.
	ErrUnconfirmed = model.ErrUnconfirmed
)
