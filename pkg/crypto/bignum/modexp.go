package bignum

import (
	"math/big"

	"github.com/coventry/RSADonations/internal/security"
)

// ModExp computes base^exponent mod modulus. The result is encoded in the
// same number of words as modulus. Inputs may have any word counts.
func ModExp(base, exponent, modulus Words) (Words, error) {
	m := modulus.Big()
	if m.Sign() == 0 {
		return Words{}, ErrZeroModulus
	}

	result := security.ConstantTimeModExp(base.Big(), exponent.Big(), m)
	return FromBig(result, modulus.Len())
}

// Mod reduces x modulo modulus, returning a value with the modulus word count.
func Mod(x, modulus Words) (Words, error) {
	m := modulus.Big()
	if m.Sign() == 0 {
		return Words{}, ErrZeroModulus
	}

	r := new(big.Int).Mod(x.Big(), m)
	return FromBig(r, modulus.Len())
}

// Less reports whether x < y as integers.
func Less(x, y Words) bool {
	return x.Big().Cmp(y.Big()) < 0
}
