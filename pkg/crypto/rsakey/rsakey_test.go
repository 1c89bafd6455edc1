package rsakey

import (
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/coventry/RSADonations/pkg/crypto/bignum"
	"github.com/coventry/RSADonations/pkg/crypto/hash"
	"github.com/coventry/RSADonations/pkg/crypto/rand"
)

func TestNewPublicKeyValidation(t *testing.T) {
	tests := []struct {
		name      string
		n         *big.Int
		bitLength uint64
		wantErr   error
	}{
		{"single word", big.NewInt(15), 256, nil},
		{"two words", big.NewInt(15), 512, nil},
		{"not a word multiple", big.NewInt(15), 300, ErrUnsupportedSize},
		{"zero length", big.NewInt(15), 0, ErrUnsupportedSize},
		{"zero modulus", big.NewInt(0), 256, ErrZeroModulus},
		{"overflowing modulus", new(big.Int).Lsh(big.NewInt(1), 256), 256, bignum.ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPublicKey(tt.n, big.NewInt(3), tt.bitLength)
			if err != tt.wantErr {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateMismatchedBitLength(t *testing.T) {
	pk, err := NewPublicKey(big.NewInt(15), big.NewInt(4), 256)
	if err != nil {
		t.Fatalf("NewPublicKey failed: %v", err)
	}

	pk.BitLength = 512
	if err := pk.Validate(); err != ErrBitLengthMismatch {
		t.Errorf("Expected ErrBitLengthMismatch, got %v", err)
	}

	empty := PublicKey{BitLength: 0}
	if err := empty.Validate(); err != ErrEmptyModulus {
		t.Errorf("Expected ErrEmptyModulus, got %v", err)
	}
}

func TestHashMatchesPackedTriple(t *testing.T) {
	// modulus [15], exponent 4, size 256
	pk, err := NewPublicKey(big.NewInt(15), big.NewInt(4), 256)
	if err != nil {
		t.Fatalf("NewPublicKey failed: %v", err)
	}

	expected, _ := hash.NewPacker().
		Uint256(uint256.NewInt(15)).
		Uint256(uint256.NewInt(4)).
		Uint256(uint256.NewInt(256)).
		Sum()
	if pk.Hash() != expected {
		t.Errorf("Expected %s, got %s", expected.Hex(), pk.Hash().Hex())
	}

	other, _ := NewPublicKey(big.NewInt(15), big.NewInt(3), 256)
	if other.Hash() == pk.Hash() {
		t.Error("Different exponents must give different hashes")
	}
}

func TestEncryptSmallKey(t *testing.T) {
	pk, _ := NewPublicKey(big.NewInt(15), big.NewInt(4), 256)

	c, err := pk.Encrypt(bignum.FromUint64(3))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	// 3^4 mod 15
	if c.Big().Int64() != 6 {
		t.Errorf("Expected 6, got %s", c.Big())
	}
}

func TestGenerateKeySignRoundTrip(t *testing.T) {
	key, err := GenerateKey(512, 3)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	defer key.Destroy()

	if key.N().BitLen() != 512 || key.BitLength != 512 || key.Modulus.Len() != 2 {
		t.Fatalf("Unexpected key shape: %d bits, %d words", key.N().BitLen(), key.Modulus.Len())
	}

	for i := 0; i < 3; i++ {
		mInt, err := rand.Below(key.N())
		if err != nil {
			t.Fatalf("Failed to sample message: %v", err)
		}
		m, _ := bignum.FromBig(mInt, key.Modulus.Len())

		sig, err := key.Sign(m)
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		back, err := key.Encrypt(sig)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if !back.Equal(m) {
			t.Fatal("Encrypt(Sign(m)) should reproduce m")
		}
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	key, err := GenerateKey(512, 65537)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if _, err := key.Sign(bignum.FromUint64(1)); err != ErrWordCountMismatch {
		t.Errorf("Expected ErrWordCountMismatch, got %v", err)
	}

	n, _ := bignum.FromBig(key.N(), 2)
	if _, err := key.Sign(n); err != ErrMessageOutOfRange {
		t.Errorf("Expected ErrMessageOutOfRange, got %v", err)
	}
}

func TestGenerateKeyParameters(t *testing.T) {
	if _, err := GenerateKey(500, 3); err != ErrUnsupportedSize {
		t.Errorf("Expected ErrUnsupportedSize, got %v", err)
	}
	if _, err := GenerateKey(512, 4); err != ErrInvalidExponent {
		t.Errorf("Expected ErrInvalidExponent, got %v", err)
	}
}

func TestFromRSA(t *testing.T) {
	key, err := GenerateKey(512, 65537)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	pk, err := FromRSA(&rsa.PublicKey{N: key.N(), E: 65537})
	if err != nil {
		t.Fatalf("FromRSA failed: %v", err)
	}
	if pk.Hash() != key.PublicKey.Hash() {
		t.Error("FromRSA should produce the same key identity")
	}

	if _, err := FromRSA(nil); err != ErrNotRSAKey {
		t.Errorf("Expected ErrNotRSAKey, got %v", err)
	}
}
