package types

import "errors"

// Dataset identifier errors
var (
	// ErrEmptyDatasetID is returned when an identifier string is empty
	ErrEmptyDatasetID = errors.New("empty dataset identifier")

	// ErrInvalidDatasetID is returned when an identifier cannot be split
	// into a non-empty source segment
	ErrInvalidDatasetID = errors.New("invalid dataset identifier")
)
