package catalog

import "errors"

var (
	// ErrNotFound is returned when a market or commodity is not in the catalog.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when catalog data fails validation.
	ErrInvalid = errors.New("invalid catalog")
)
