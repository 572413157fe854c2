package domain

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrImageNotFound   = errors.New("image not found")
	ErrInvalidListing  = errors.New("invalid listing data")
)
