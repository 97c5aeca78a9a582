package memmgr

import "errors"

// Sentinel kinds for partition manager errors.
var (
	ErrOutOfSpace = errors.New("durable memory out of space")
	ErrInvalidTag = errors.New("invalid region tag")
	ErrBadHeader  = errors.New("memory manager header corrupt")
)
