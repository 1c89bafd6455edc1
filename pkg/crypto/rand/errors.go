package rand

import "errors"

var (
	// ErrInvalidLength is returned when requested length is invalid
	ErrInvalidLength = errors.New("rand: length must be positive")

	// ErrNilMax is returned when max parameter is nil
	ErrNilMax = errors.New("rand: nil upper bound")

	// ErrInvalidMax is returned when max leaves no values to choose from
	ErrInvalidMax = errors.New("rand: upper bound must exceed one")

	// ErrInvalidBitSize is returned for a modulus size that is odd or below 4
	ErrInvalidBitSize = errors.New("rand: modulus size must be even and at least 4 bits")
)
