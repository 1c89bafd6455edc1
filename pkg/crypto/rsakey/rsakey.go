// Package rsakey models the RSA public keys that donations are addressed to,
// and the private-key operations a key holder performs off-ledger to answer
// claim challenges.
package rsakey

import (
	"crypto/rsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/coventry/RSADonations/internal/security"
	"github.com/coventry/RSADonations/pkg/crypto/bignum"
	"github.com/coventry/RSADonations/pkg/crypto/hash"
	"github.com/coventry/RSADonations/pkg/crypto/rand"
)

// PublicKey is the (modulus, exponent, bitLength) triple identifying a pool
type PublicKey struct {
	// Modulus is N in 256-bit words, most significant first
	Modulus bignum.Words

	// Exponent is the public exponent e
	Exponent uint256.Int

	// BitLength is the declared width of N
	BitLength uint64
}

// NewPublicKey encodes n and e into a PublicKey of the given bit length
func NewPublicKey(n *big.Int, e *big.Int, bitLength uint64) (PublicKey, error) {
	if bitLength == 0 || bitLength%bignum.WordBits != 0 {
		return PublicKey{}, ErrUnsupportedSize
	}

	modulus, err := bignum.FromBig(n, int(bitLength/bignum.WordBits))
	if err != nil {
		return PublicKey{}, err
	}

	if e == nil || e.Sign() < 0 {
		return PublicKey{}, ErrInvalidExponent
	}
	exponent, overflow := uint256.FromBig(e)
	if overflow {
		return PublicKey{}, ErrInvalidExponent
	}

	pk := PublicKey{Modulus: modulus, Exponent: *exponent, BitLength: bitLength}
	if err := pk.Validate(); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

// FromRSA converts a standard library RSA key, rounding the width up to a
// whole number of words
func FromRSA(key *rsa.PublicKey) (PublicKey, error) {
	if key == nil || key.N == nil {
		return PublicKey{}, ErrNotRSAKey
	}

	words := (key.N.BitLen() + bignum.WordBits - 1) / bignum.WordBits
	return NewPublicKey(key.N, big.NewInt(int64(key.E)), uint64(words)*bignum.WordBits)
}

// Validate checks the shape of the key
func (pk PublicKey) Validate() error {
	if pk.Modulus.Len() == 0 {
		return ErrEmptyModulus
	}
	if pk.Modulus.BitLength() != pk.BitLength {
		return ErrBitLengthMismatch
	}
	if pk.Modulus.IsZero() {
		return ErrZeroModulus
	}
	return nil
}

// Hash returns the key's identity:
// keccak256(modulus words || uint256(exponent) || uint256(bitLength))
func (pk PublicKey) Hash() common.Hash {
	// Packing fixed-width words cannot fail
	h, _ := hash.NewPacker().
		Words(pk.Modulus).
		Uint256(&pk.Exponent).
		Uint64(pk.BitLength).
		Sum()
	return h
}

// N returns the modulus as an integer
func (pk PublicKey) N() *big.Int {
	return pk.Modulus.Big()
}

// E returns the public exponent as an integer
func (pk PublicKey) E() *big.Int {
	return pk.Exponent.ToBig()
}

// Encrypt raises message to the public exponent modulo N. Messages of any
// width are accepted; the result always has the modulus width.
func (pk PublicKey) Encrypt(message bignum.Words) (bignum.Words, error) {
	if err := pk.Validate(); err != nil {
		return bignum.Words{}, err
	}
	return bignum.ModExp(message, bignum.FromUint256(&pk.Exponent), pk.Modulus)
}

// PrivateKey holds the secret exponent matching a PublicKey
type PrivateKey struct {
	PublicKey

	// D is the private exponent, the inverse of e modulo lcm(p-1, q-1)
	D *big.Int

	// Primes are the two factors of N
	Primes [2]*big.Int
}

// GenerateKey creates a key whose modulus is exactly bits wide with the
// given public exponent
func GenerateKey(bits int, exponent uint64) (*PrivateKey, error) {
	if bits <= 0 || bits%bignum.WordBits != 0 {
		return nil, ErrUnsupportedSize
	}
	if exponent < 3 || exponent%2 == 0 {
		return nil, ErrInvalidExponent
	}

	e := new(big.Int).SetUint64(exponent)
	one := big.NewInt(1)

	for {
		p, q, err := rand.PrimePair(bits)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).Mul(p, q)

		pm1 := new(big.Int).Sub(p, one)
		qm1 := new(big.Int).Sub(q, one)
		gcd := new(big.Int).GCD(nil, nil, pm1, qm1)
		lambda := new(big.Int).Div(new(big.Int).Mul(pm1, qm1), gcd)

		d := security.ConstantTimeModInv(e, lambda)
		if d == nil {
			// e shares a factor with lambda; pick new primes
			continue
		}

		pub, err := NewPublicKey(n, e, uint64(bits))
		if err != nil {
			return nil, err
		}

		return &PrivateKey{PublicKey: pub, D: d, Primes: [2]*big.Int{p, q}}, nil
	}
}

// Sign computes the e-th root of challenge modulo N, the value a claim
// submits as its signature
func (k *PrivateKey) Sign(challenge bignum.Words) (bignum.Words, error) {
	if challenge.Len() != k.Modulus.Len() {
		return bignum.Words{}, ErrWordCountMismatch
	}
	if err := security.ValidateScalarInRange(challenge.Big(), k.N()); err != nil {
		return bignum.Words{}, ErrMessageOutOfRange
	}

	d, err := bignum.FromBig(k.D, k.Modulus.Len())
	if err != nil {
		return bignum.Words{}, err
	}
	return bignum.ModExp(challenge, d, k.Modulus)
}

// Destroy clears the secret material
func (k *PrivateKey) Destroy() {
	security.SecureZeroBigInt(k.D)
	for _, p := range k.Primes {
		security.SecureZeroBigInt(p)
	}
}
