package custody

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

var (
	// ErrInvalidAmount is returned when a donation amount is missing or not positive
	ErrInvalidAmount = errors.New("custody: donation amount must be positive")

	// ErrInvalidReward is returned when a relayer reward is missing or negative
	ErrInvalidReward = errors.New("custody: relayer reward must be non-negative")

	// ErrInvalidDeadline is returned when a recovery deadline is negative
	ErrInvalidDeadline = errors.New("custody: recovery deadline must be non-negative")

	// ErrKeyNotFound is returned when a key hash has never been registered
	ErrKeyNotFound = errors.New("custody: public key not registered")

	// ErrInvalidSignature is returned when a claim signature does not
	// encrypt to the current challenge
	ErrInvalidSignature = errors.New("custody: signature does not match challenge")

	// ErrInsufficientPool is returned when the relayer reward exceeds the pool
	ErrInsufficientPool = errors.New("custody: relayer reward exceeds pooled balance")

	// ErrTransferFailed is returned when the first payout transfer fails;
	// bookkeeping is rolled back
	ErrTransferFailed = errors.New("custody: payout transfer failed")

	// ErrPartialPayout is returned when a later transfer fails after an
	// earlier one went through; bookkeeping stays committed
	ErrPartialPayout = errors.New("custody: payout incomplete")

	// ErrBitLengthMismatch is returned when a key's declared bit length does
	// not match its modulus word count
	ErrBitLengthMismatch = rsakey.ErrBitLengthMismatch

	// ErrEmptyModulus is returned when a key has no modulus words
	ErrEmptyModulus = rsakey.ErrEmptyModulus

	// ErrZeroModulus is returned when a key's modulus is zero
	ErrZeroModulus = rsakey.ErrZeroModulus

	// ErrWordCountMismatch is returned when a message does not have the
	// modulus word count
	ErrWordCountMismatch = rsakey.ErrWordCountMismatch

	errNilDatabase = errors.New("custody: database not configured")
	errCorruptRow  = errors.New("custody: stored row is corrupt")
)

// PartialPayoutError reports a claim whose bookkeeping is committed but whose
// payout stopped part way. Amount is owed to Unpaid and any later payees.
type PartialPayoutError struct {
	Unpaid common.Address
	Amount *big.Int
	Err    error
}

func (e *PartialPayoutError) Error() string {
	return fmt.Sprintf("%v: %s unpaid to %s: %v", ErrPartialPayout, e.Amount, e.Unpaid.Hex(), e.Err)
}

func (e *PartialPayoutError) Is(target error) bool {
	return target == ErrPartialPayout
}

func (e *PartialPayoutError) Unwrap() error {
	return e.Err
}
