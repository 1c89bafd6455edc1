package custody

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/pkg/crypto/bignum"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

// Donation is one donor's row against one key
type Donation struct {
	Amount           *big.Int
	RecoveryDeadline int64
	Timestamp        int64
}

// validAfter reports whether the row was written after the last claim and
// so still counts toward the pool.
func (d *Donation) validAfter(lastClaim int64) bool {
	return d.Timestamp > lastClaim
}

// DonateRequest donates to a key, registering it if needed
type DonateRequest struct {
	Donor    common.Address
	Key      rsakey.PublicKey
	Amount   *big.Int
	Deadline int64
}

// DonationReceipt reports the state after a donation
type DonationReceipt struct {
	KeyHash     common.Hash
	Registered  bool
	DonorAmount *big.Int
	Pool        *big.Int
	Deadline    int64
	Timestamp   int64
}

// ClaimRequest sweeps a key's pool
type ClaimRequest struct {
	Key           common.Hash
	Recipient     common.Address
	RelayerReward *big.Int
	Signature     bignum.Words
	Invoker       common.Address
}

// ClaimReceipt reports a completed sweep
type ClaimReceipt struct {
	KeyHash       common.Hash
	Swept         *big.Int
	RelayerReward *big.Int
	Payout        *big.Int
	Nonce         uint64
	ClaimedAt     int64
}

// RecoveryOutcome is the result of a recovery attempt
type RecoveryOutcome uint8

const (
	OutcomeAlreadyClaimed RecoveryOutcome = iota + 1
	OutcomeTooSoon
	OutcomeRecovered
)

func (o RecoveryOutcome) String() string {
	switch o {
	case OutcomeAlreadyClaimed:
		return "already_claimed"
	case OutcomeTooSoon:
		return "too_soon"
	case OutcomeRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// RecoveryResult reports what a recovery attempt did
type RecoveryResult struct {
	Outcome RecoveryOutcome

	// Amount is the refund paid, zero unless Outcome is OutcomeRecovered
	Amount *big.Int

	// Deadline is the donor's recovery deadline
	Deadline int64

	// Pool is the key's pool after the attempt
	Pool *big.Int
}
