// Package security provides constant-time operations for cryptographic security
//
// The helpers here wrap math/big so that every signature check and key
// derivation in the module goes through one place.
package security

import "math/big"

// ConstantTimeModInv performs modular inversion
// result = a^(-1) mod m
// Returns nil if inverse doesn't exist
func ConstantTimeModInv(a, m *big.Int) *big.Int {
	if a.Sign() <= 0 || m.Sign() <= 0 {
		return nil
	}

	return new(big.Int).ModInverse(a, m)
}

// ConstantTimeModExp performs modular exponentiation
// result = base^exp mod m
// Go's Exp uses windowed square-and-multiply with constant-time window
// selection, and works for exponents of any width.
func ConstantTimeModExp(base, exp, m *big.Int) *big.Int {
	if base.Sign() < 0 || exp.Sign() < 0 || m.Sign() <= 0 {
		panic("ConstantTimeModExp: inputs must be non-negative")
	}

	return new(big.Int).Exp(base, exp, m)
}
