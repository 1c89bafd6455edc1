package custody

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EventTypeKeyRegistered           = "custody.key.registered"
	EventTypeDonationRecorded        = "custody.donation.recorded"
	EventTypeDonationRecoveryTooSoon = "custody.donation.recovery_too_soon"
	EventTypeDonationAlreadyClaimed  = "custody.donation.already_claimed"
	EventTypeDonationRecovered       = "custody.donation.recovered"
	EventTypeDonationClaimed         = "custody.donation.claimed"
)

// KeyRegistered is emitted the first time a public key is seen.
type KeyRegistered struct {
	Sender    common.Address
	KeyHash   common.Hash
	BitLength uint64
	Exponent  *big.Int
}

func (KeyRegistered) EventType() string { return EventTypeKeyRegistered }

func (e KeyRegistered) Attributes() map[string]string {
	return map[string]string{
		"sender":    e.Sender.Hex(),
		"keyHash":   e.KeyHash.Hex(),
		"bitLength": strconv.FormatUint(e.BitLength, 10),
		"exponent":  formatAmount(e.Exponent),
	}
}

// DonationRecorded is emitted after every accepted donation.
type DonationRecorded struct {
	Donor       common.Address
	KeyHash     common.Hash
	DonorAmount *big.Int
	Pool        *big.Int
	Deadline    int64
}

func (DonationRecorded) EventType() string { return EventTypeDonationRecorded }

func (e DonationRecorded) Attributes() map[string]string {
	return map[string]string{
		"donor":       e.Donor.Hex(),
		"keyHash":     e.KeyHash.Hex(),
		"donorAmount": formatAmount(e.DonorAmount),
		"pool":        formatAmount(e.Pool),
		"deadline":    strconv.FormatInt(e.Deadline, 10),
	}
}

// DonationRecoveryTooSoon is emitted when a donor asks for a refund before
// their deadline.
type DonationRecoveryTooSoon struct {
	Donor    common.Address
	KeyHash  common.Hash
	Deadline int64
	Now      int64
}

func (DonationRecoveryTooSoon) EventType() string { return EventTypeDonationRecoveryTooSoon }

func (e DonationRecoveryTooSoon) Attributes() map[string]string {
	return map[string]string{
		"donor":    e.Donor.Hex(),
		"keyHash":  e.KeyHash.Hex(),
		"deadline": strconv.FormatInt(e.Deadline, 10),
		"now":      strconv.FormatInt(e.Now, 10),
	}
}

// DonationAlreadyClaimed is emitted when a donor's row was swept by a claim.
type DonationAlreadyClaimed struct {
	Donor     common.Address
	KeyHash   common.Hash
	LastClaim int64
}

func (DonationAlreadyClaimed) EventType() string { return EventTypeDonationAlreadyClaimed }

func (e DonationAlreadyClaimed) Attributes() map[string]string {
	return map[string]string{
		"donor":     e.Donor.Hex(),
		"keyHash":   e.KeyHash.Hex(),
		"lastClaim": strconv.FormatInt(e.LastClaim, 10),
	}
}

// DonationRecovered is emitted when a donor is refunded.
type DonationRecovered struct {
	Donor   common.Address
	KeyHash common.Hash
	Amount  *big.Int
	Pool    *big.Int
}

func (DonationRecovered) EventType() string { return EventTypeDonationRecovered }

func (e DonationRecovered) Attributes() map[string]string {
	return map[string]string{
		"donor":   e.Donor.Hex(),
		"keyHash": e.KeyHash.Hex(),
		"amount":  formatAmount(e.Amount),
		"pool":    formatAmount(e.Pool),
	}
}

// DonationClaimed is emitted when the key holder sweeps the pool.
type DonationClaimed struct {
	KeyHash       common.Hash
	Recipient     common.Address
	Invoker       common.Address
	RelayerReward *big.Int
	Swept         *big.Int
	Nonce         uint64
}

func (DonationClaimed) EventType() string { return EventTypeDonationClaimed }

func (e DonationClaimed) Attributes() map[string]string {
	return map[string]string{
		"keyHash":       e.KeyHash.Hex(),
		"recipient":     e.Recipient.Hex(),
		"invoker":       e.Invoker.Hex(),
		"relayerReward": formatAmount(e.RelayerReward),
		"swept":         formatAmount(e.Swept),
		"nonce":         strconv.FormatUint(e.Nonce, 10),
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
