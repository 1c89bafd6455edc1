// Package rand draws the secret randomness the module needs: key-store salts
// and nonces, message samples and RSA prime pairs.
package rand

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Reader is the entropy source. Tests may swap in a deterministic one.
var Reader io.Reader = rand.Reader

// Bytes returns n random bytes
func Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(Reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Below returns a uniform value in [1, max)
func Below(max *big.Int) (*big.Int, error) {
	if max == nil {
		return nil, ErrNilMax
	}
	if max.Cmp(big.NewInt(1)) <= 0 {
		return nil, ErrInvalidMax
	}

	for {
		v, err := rand.Int(Reader, max)
		if err != nil {
			return nil, err
		}
		if v.Sign() != 0 {
			return v, nil
		}
	}
}

// PrimePair returns two distinct primes of bits/2 bits each. Both have
// their top two bits set, so their product is exactly bits wide.
func PrimePair(bits int) (p, q *big.Int, err error) {
	if bits < 4 || bits%2 != 0 {
		return nil, nil, ErrInvalidBitSize
	}

	half := bits / 2
	if p, err = rand.Prime(Reader, half); err != nil {
		return nil, nil, err
	}
	for {
		if q, err = rand.Prime(Reader, half); err != nil {
			return nil, nil, err
		}
		if p.Cmp(q) != 0 {
			return p, q, nil
		}
	}
}
