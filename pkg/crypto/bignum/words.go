// Package bignum provides fixed-width multi-word unsigned integers and the
// modular exponentiation used to verify RSA signatures over them.
package bignum

import (
	"encoding/hex"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/coventry/RSADonations/internal/security"
)

const (
	// WordBits is the width of a single word in bits
	WordBits = 256

	// WordBytes is the width of a single word in bytes
	WordBytes = WordBits / 8
)

// Words is a non-negative integer stored as a fixed-length sequence of
// 256-bit words. Index 0 holds the most significant word.
type Words struct {
	limbs []uint256.Int
}

// NewWords wraps the given words after checking that their count matches
// bitLength. The input slice is copied.
func NewWords(words []uint256.Int, bitLength uint64) (Words, error) {
	if len(words) == 0 {
		return Words{}, ErrEmpty
	}
	if uint64(len(words))*WordBits != bitLength {
		return Words{}, ErrBitLengthMismatch
	}

	limbs := make([]uint256.Int, len(words))
	copy(limbs, words)
	return Words{limbs: limbs}, nil
}

// FromBig encodes x into exactly wordCount words, left-padding with zero
// words.
func FromBig(x *big.Int, wordCount int) (Words, error) {
	if wordCount <= 0 {
		return Words{}, ErrInvalidWordCount
	}
	if x == nil {
		x = new(big.Int)
	}
	if x.Sign() < 0 {
		return Words{}, ErrNegative
	}
	if x.BitLen() > wordCount*WordBits {
		return Words{}, ErrOverflow
	}

	buf := x.FillBytes(make([]byte, wordCount*WordBytes))
	return FromBytes(buf)
}

// FromBytes decodes a big-endian byte string whose length is a whole number
// of words.
func FromBytes(b []byte) (Words, error) {
	if len(b) == 0 {
		return Words{}, ErrEmpty
	}
	if len(b)%WordBytes != 0 {
		return Words{}, ErrInvalidByteLength
	}

	limbs := make([]uint256.Int, len(b)/WordBytes)
	for i := range limbs {
		limbs[i].SetBytes32(b[i*WordBytes : (i+1)*WordBytes])
	}
	return Words{limbs: limbs}, nil
}

// FromUint64 returns a single-word encoding of v.
func FromUint64(v uint64) Words {
	return Words{limbs: []uint256.Int{*uint256.NewInt(v)}}
}

// FromUint256 returns a single-word encoding of v.
func FromUint256(v *uint256.Int) Words {
	limbs := make([]uint256.Int, 1)
	if v != nil {
		limbs[0] = *v
	}
	return Words{limbs: limbs}
}

// Len returns the number of words.
func (w Words) Len() int {
	return len(w.limbs)
}

// BitLength returns the declared width of the encoding, which is always a
// whole number of words.
func (w Words) BitLength() uint64 {
	return uint64(len(w.limbs)) * WordBits
}

// Word returns a copy of word i.
func (w Words) Word(i int) uint256.Int {
	return w.limbs[i]
}

// Slice returns a copy of the underlying words.
func (w Words) Slice() []uint256.Int {
	out := make([]uint256.Int, len(w.limbs))
	copy(out, w.limbs)
	return out
}

// IsZero reports whether every word is zero.
func (w Words) IsZero() bool {
	for i := range w.limbs {
		if !w.limbs[i].IsZero() {
			return false
		}
	}
	return true
}

// Bytes returns the big-endian encoding, WordBytes per word.
func (w Words) Bytes() []byte {
	out := make([]byte, len(w.limbs)*WordBytes)
	for i := range w.limbs {
		b := w.limbs[i].Bytes32()
		copy(out[i*WordBytes:], b[:])
	}
	return out
}

// Big returns the integer value.
func (w Words) Big() *big.Int {
	return new(big.Int).SetBytes(w.Bytes())
}

// Equal compares two encodings in constant time. Encodings of different
// lengths are never equal.
func (w Words) Equal(other Words) bool {
	if len(w.limbs) != len(other.limbs) {
		return false
	}
	return security.ConstantTimeCompare(w.Bytes(), other.Bytes())
}

// String returns the hex encoding of the full width.
func (w Words) String() string {
	return "0x" + hex.EncodeToString(w.Bytes())
}
