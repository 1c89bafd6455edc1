package bignum

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestNewWordsBitLength(t *testing.T) {
	words := []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(2)}

	tests := []struct {
		name      string
		words     []uint256.Int
		bitLength uint64
		wantErr   error
	}{
		{"matching", words, 512, nil},
		{"too short declared", words, 256, ErrBitLengthMismatch},
		{"not a multiple", words, 500, ErrBitLengthMismatch},
		{"empty", nil, 0, ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWords(tt.words, tt.bitLength)
			if err != tt.wantErr {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && w.BitLength() != tt.bitLength {
				t.Errorf("Expected bit length %d, got %d", tt.bitLength, w.BitLength())
			}
		})
	}
}

func TestNewWordsCopiesInput(t *testing.T) {
	words := []uint256.Int{*uint256.NewInt(7)}
	w, err := NewWords(words, 256)
	if err != nil {
		t.Fatalf("NewWords failed: %v", err)
	}

	words[0] = *uint256.NewInt(8)
	got := w.Word(0)
	if got.Uint64() != 7 {
		t.Errorf("Words should not alias caller slice, got %d", got.Uint64())
	}
}

func TestFromBigPadsLeft(t *testing.T) {
	w, err := FromBig(big.NewInt(0xabcd), 3)
	if err != nil {
		t.Fatalf("FromBig failed: %v", err)
	}

	if w.Len() != 3 {
		t.Fatalf("Expected 3 words, got %d", w.Len())
	}
	for i := 0; i < 2; i++ {
		word := w.Word(i)
		if !word.IsZero() {
			t.Errorf("Expected word %d to be zero padding", i)
		}
	}
	last := w.Word(2)
	if last.Uint64() != 0xabcd {
		t.Errorf("Expected least significant word 0xabcd, got %x", last.Uint64())
	}
	if w.Big().Cmp(big.NewInt(0xabcd)) != 0 {
		t.Errorf("Round trip mismatch: %s", w.Big())
	}
}

func TestFromBigErrors(t *testing.T) {
	if _, err := FromBig(big.NewInt(-1), 1); err != ErrNegative {
		t.Errorf("Expected ErrNegative, got %v", err)
	}

	tooBig := new(big.Int).Lsh(big.NewInt(1), WordBits)
	if _, err := FromBig(tooBig, 1); err != ErrOverflow {
		t.Errorf("Expected ErrOverflow, got %v", err)
	}

	if _, err := FromBig(big.NewInt(1), 0); err != ErrInvalidWordCount {
		t.Errorf("Expected ErrInvalidWordCount, got %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	if _, err := FromBytes(make([]byte, 33)); err != ErrInvalidByteLength {
		t.Errorf("Expected ErrInvalidByteLength, got %v", err)
	}

	raw := make([]byte, 64)
	raw[31] = 1
	raw[63] = 2
	w, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}

	first, second := w.Word(0), w.Word(1)
	if first.Uint64() != 1 || second.Uint64() != 2 {
		t.Errorf("Unexpected words %d, %d", first.Uint64(), second.Uint64())
	}
	if string(w.Bytes()) != string(raw) {
		t.Error("Bytes should reproduce the input encoding")
	}
}

func TestEqual(t *testing.T) {
	a := FromUint64(5)
	b := FromUint64(5)
	c := FromUint64(6)
	wide, _ := FromBig(big.NewInt(5), 2)

	if !a.Equal(b) {
		t.Error("Equal values should compare equal")
	}
	if a.Equal(c) {
		t.Error("Different values should not compare equal")
	}
	if a.Equal(wide) {
		t.Error("Different word counts should not compare equal")
	}
}

func TestSliceDoesNotAlias(t *testing.T) {
	w, _ := FromBig(big.NewInt(0), 2)

	limbs := w.Slice()
	limbs[0].SetUint64(7)
	if !w.IsZero() {
		t.Fatal("Slice must return a copy of the words")
	}

	rebuilt, err := NewWords(limbs, 512)
	if err != nil {
		t.Fatalf("NewWords failed: %v", err)
	}
	limbs[0].SetUint64(9)
	if rebuilt.Big().Cmp(new(big.Int).Lsh(big.NewInt(7), 256)) != 0 {
		t.Errorf("NewWords must copy its input, got %s", rebuilt)
	}
}
