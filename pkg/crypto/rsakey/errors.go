package rsakey

import "errors"

var (
	// ErrEmptyModulus is returned when a public key has no modulus words
	ErrEmptyModulus = errors.New("rsakey: modulus cannot be empty")

	// ErrZeroModulus is returned when the modulus is zero
	ErrZeroModulus = errors.New("rsakey: modulus must be positive")

	// ErrBitLengthMismatch is returned when the declared bit length is not
	// the modulus word count times the word width
	ErrBitLengthMismatch = errors.New("rsakey: bit length does not match modulus word count")

	// ErrUnsupportedSize is returned for key sizes that are not a whole
	// number of words
	ErrUnsupportedSize = errors.New("rsakey: key size must be a positive multiple of 256 bits")

	// ErrInvalidExponent is returned when the public exponent cannot form a key
	ErrInvalidExponent = errors.New("rsakey: public exponent must be odd and at least 3")

	// ErrMessageOutOfRange is returned when a message is not below the modulus
	ErrMessageOutOfRange = errors.New("rsakey: message must be less than the modulus")

	// ErrWordCountMismatch is returned when a message has the wrong width
	ErrWordCountMismatch = errors.New("rsakey: message word count does not match modulus")

	// ErrNotRSAKey is returned when a certificate does not carry an RSA key
	ErrNotRSAKey = errors.New("rsakey: not an RSA public key")
)
