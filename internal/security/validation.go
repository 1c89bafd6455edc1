package security

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidRange is returned when a value is outside expected range
	ErrInvalidRange = errors.New("value out of valid range")

	// ErrNilValue is returned when a required value is nil
	ErrNilValue = errors.New("nil value provided")

	// ErrNotPositive is returned when a value must be strictly positive
	ErrNotPositive = errors.New("value must be positive")

	// ErrInputTooLong is returned when a string exceeds its maximum length
	ErrInputTooLong = errors.New("input exceeds maximum length")

	// ErrNullByte is returned when a string contains a null byte
	ErrNullByte = errors.New("input contains null bytes")
)

// ValidatePositive checks that value is non-nil and > 0
func ValidatePositive(value *big.Int) error {
	if value == nil {
		return ErrNilValue
	}

	if value.Sign() <= 0 {
		return ErrNotPositive
	}

	return nil
}

// ValidateScalarInRange checks if value is in range [0, max)
func ValidateScalarInRange(value, max *big.Int) error {
	if value == nil || max == nil {
		return ErrNilValue
	}

	if value.Sign() < 0 || value.Cmp(max) >= 0 {
		return ErrInvalidRange
	}

	return nil
}

// SanitizeInput validates and sanitizes string input
// Returns error if input contains null bytes or exceeds max length
func SanitizeInput(input string, maxLength int) error {
	if len(input) > maxLength {
		return ErrInputTooLong
	}

	for i := 0; i < len(input); i++ {
		if input[i] == 0 {
			return ErrNullByte
		}
	}

	return nil
}
