// Package hash provides the Keccak-256 hashing used to identify keys and to
// derive claim challenges.
//
// Values are packed tightly with no length prefixes: integers as 32-byte
// big-endian words, addresses as 20 raw bytes and digests as 32 raw bytes.
package hash

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/coventry/RSADonations/pkg/crypto/bignum"
)

// Keccak256 computes the legacy Keccak-256 digest of the concatenated inputs
func Keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}

	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Packer accumulates values in packed encoding. The first encoding error is
// kept and reported by Sum.
type Packer struct {
	buf []byte
	err error
}

// NewPacker returns an empty packer
func NewPacker() *Packer {
	return &Packer{}
}

// Uint256 appends a 32-byte word
func (p *Packer) Uint256(v *uint256.Int) *Packer {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	p.buf = append(p.buf, b[:]...)
	return p
}

// Uint64 appends v widened to a 32-byte word
func (p *Packer) Uint64(v uint64) *Packer {
	return p.Uint256(uint256.NewInt(v))
}

// Big appends v as a 32-byte word
func (p *Packer) Big(v *big.Int) *Packer {
	if v == nil {
		return p.Uint256(nil)
	}
	if v.Sign() < 0 {
		p.setErr(ErrNegativeValue)
		return p
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		p.setErr(ErrValueOverflow)
		return p
	}
	return p.Uint256(word)
}

// Words appends every word of w in order
func (p *Packer) Words(w bignum.Words) *Packer {
	p.buf = append(p.buf, w.Bytes()...)
	return p
}

// Address appends the 20 address bytes
func (p *Packer) Address(a common.Address) *Packer {
	p.buf = append(p.buf, a.Bytes()...)
	return p
}

// Hash appends a 32-byte digest
func (p *Packer) Hash(h common.Hash) *Packer {
	p.buf = append(p.buf, h.Bytes()...)
	return p
}

// Bytes returns the packed encoding so far
func (p *Packer) Bytes() []byte {
	out := make([]byte, len(p.buf))
	copy(out, p.buf)
	return out
}

// Sum returns the Keccak-256 digest of the packed encoding
func (p *Packer) Sum() (common.Hash, error) {
	if p.err != nil {
		return common.Hash{}, p.err
	}
	return Keccak256(p.buf), nil
}

func (p *Packer) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

// ExpandWords stretches a seed into count 256-bit words, word i being
// Keccak256(uint256(i) || seed). Fixed-size digests are tiled this way to
// fill a modulus of any width.
func ExpandWords(seed common.Hash, count int) (bignum.Words, error) {
	if count <= 0 {
		return bignum.Words{}, ErrInvalidLength
	}

	out := make([]byte, 0, count*bignum.WordBytes)
	for i := 0; i < count; i++ {
		digest, err := NewPacker().Uint64(uint64(i)).Hash(seed).Sum()
		if err != nil {
			return bignum.Words{}, err
		}
		out = append(out, digest.Bytes()...)
	}

	return bignum.FromBytes(out)
}
