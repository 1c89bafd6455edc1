package bignum

import "errors"

var (
	// ErrEmpty is returned when a word sequence has no words
	ErrEmpty = errors.New("word sequence cannot be empty")

	// ErrBitLengthMismatch is returned when the declared bit length does not
	// equal the word count times the word width
	ErrBitLengthMismatch = errors.New("bit length does not match word count")

	// ErrNegative is returned when a negative integer is encoded
	ErrNegative = errors.New("value must be non-negative")

	// ErrOverflow is returned when a value does not fit the requested word count
	ErrOverflow = errors.New("value does not fit in word count")

	// ErrInvalidByteLength is returned when a byte encoding is not a whole
	// number of words
	ErrInvalidByteLength = errors.New("byte length must be a multiple of the word size")

	// ErrZeroModulus is returned when a modulus is zero
	ErrZeroModulus = errors.New("modulus must be positive")

	// ErrInvalidWordCount is returned when a word count is not positive
	ErrInvalidWordCount = errors.New("word count must be positive")
)
