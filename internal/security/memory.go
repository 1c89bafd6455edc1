package security

import (
	"crypto/subtle"
	"math/big"
	"runtime"
)

// SecureZero overwrites data in place. Derived keys and decrypted key files
// pass through here once used.
func SecureZero(data []byte) {
	clear(data)
	runtime.KeepAlive(data)
}

// SecureZeroBigInt wipes the limbs backing b and sets it to zero. Private
// exponents and prime factors are cleared this way.
func SecureZeroBigInt(b *big.Int) {
	if b == nil {
		return
	}
	limbs := b.Bits()
	clear(limbs)
	b.SetInt64(0)
	runtime.KeepAlive(limbs)
}

// ConstantTimeCompare reports whether a and b are equal without branching
// on their contents
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
