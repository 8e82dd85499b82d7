package domain

import "errors"

var (
	ErrNotFound       = errors.New("listing not found")
	ErrInvalidFilter  = errors.New("invalid filter parameters")
	ErrInvalidListing = errors.New("invalid listing data")
)
