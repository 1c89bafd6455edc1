package hash

import "errors"

var (
	// ErrInvalidLength is returned when an invalid length is specified
	ErrInvalidLength = errors.New("length must be positive")

	// ErrNegativeValue is returned when a negative integer is packed
	ErrNegativeValue = errors.New("packed integer must be non-negative")

	// ErrValueOverflow is returned when an integer does not fit in 256 bits
	ErrValueOverflow = errors.New("packed integer exceeds 256 bits")
)
