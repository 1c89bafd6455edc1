package custody

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestRecoverTooSoon(t *testing.T) {
	h := newHarness(t)
	key := toyKey(t)
	deadline := h.clock.Now() + 3600
	h.donate(t, donorA, key, 2, deadline)
	h.rec.Reset()

	result, err := h.svc.Recover(context.Background(), donorA, key.Hash())
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.Outcome != OutcomeTooSoon {
		t.Errorf("Expected TooSoon, got %v", result.Outcome)
	}
	if result.Deadline != deadline || result.Amount.Sign() != 0 || result.Pool.Int64() != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}

	row, _, _ := h.svc.Donation(donorA, key.Hash())
	if row.Amount.Int64() != 2 || h.pool(t, key.Hash()) != 2 {
		t.Error("TooSoon must leave the row and pool unchanged")
	}
	if got := h.rec.Types(); len(got) != 1 || got[0] != EventTypeDonationRecoveryTooSoon {
		t.Errorf("Expected a single TooSoon event, got %v", got)
	}
	if h.bank.calls.Load() != 0 {
		t.Error("TooSoon must not transfer")
	}
}

func TestRecoverAfterDeadline(t *testing.T) {
	h := newHarness(t)
	key := toyKey(t)
	deadline := h.clock.Now() + 60
	h.donate(t, donorA, key, 4, deadline)
	h.donate(t, donorB, key, 6, deadline)

	// The deadline itself is the first second recovery is allowed
	h.clock.Advance(60)
	h.rec.Reset()

	result, err := h.svc.Recover(context.Background(), donorA, key.Hash())
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.Outcome != OutcomeRecovered || result.Amount.Int64() != 4 || result.Pool.Int64() != 6 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if h.bank.Balance(donorA).Int64() != 4 {
		t.Errorf("Expected donor refunded 4, got %s", h.bank.Balance(donorA))
	}

	row, ok, _ := h.svc.Donation(donorA, key.Hash())
	if !ok || row.Amount.Sign() != 0 {
		t.Errorf("Expected a zeroed row, got %+v", row)
	}
	if got := h.pool(t, key.Hash()); got != 6 {
		t.Errorf("Expected pool 6, got %d", got)
	}

	ev, ok := h.rec.Last().(DonationRecovered)
	if !ok || ev.Amount.Int64() != 4 || ev.Pool.Int64() != 6 {
		t.Errorf("Unexpected event: %#v", h.rec.Last())
	}

	// A second recovery refunds nothing more
	again, err := h.svc.Recover(context.Background(), donorA, key.Hash())
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if again.Outcome != OutcomeRecovered || again.Amount.Sign() != 0 {
		t.Errorf("Expected an empty refund, got %+v", again)
	}
	if h.bank.Balance(donorA).Int64() != 4 {
		t.Error("Second recovery must not pay again")
	}
}

func TestRecoverAlreadyClaimed(t *testing.T) {
	h := newHarness(t)
	priv := testKey(t)
	keyHash := priv.PublicKey.Hash()

	h.donate(t, donorA, priv.PublicKey, 5, h.clock.Now()+10)
	h.clock.Advance(1)
	claim(t, h, priv, keyHash, big.NewInt(1))

	// Past the deadline, but the claim comes first
	h.clock.Advance(100)
	h.rec.Reset()

	result, err := h.svc.Recover(context.Background(), donorA, keyHash)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyClaimed {
		t.Errorf("Expected AlreadyClaimed, got %v", result.Outcome)
	}
	if h.bank.Balance(donorA).Sign() != 0 {
		t.Error("Claimed donation must not be refunded")
	}
	if got := h.rec.Types(); len(got) != 1 || got[0] != EventTypeDonationAlreadyClaimed {
		t.Errorf("Expected a single AlreadyClaimed event, got %v", got)
	}
}

func TestRecoverSameSecondAsClaim(t *testing.T) {
	h := newHarness(t)
	priv := testKey(t)
	keyHash := priv.PublicKey.Hash()

	// Donation and claim share a timestamp; the row counts as swept
	h.donate(t, donorA, priv.PublicKey, 5, 0)
	claim(t, h, priv, keyHash, big.NewInt(0))

	result, err := h.svc.Recover(context.Background(), donorA, keyHash)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyClaimed {
		t.Errorf("Expected AlreadyClaimed, got %v", result.Outcome)
	}
}

func TestRecoverWithoutDonation(t *testing.T) {
	h := newHarness(t)
	key := toyKey(t)
	h.donate(t, donorA, key, 1, 0)

	result, err := h.svc.Recover(context.Background(), donorB, key.Hash())
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyClaimed {
		t.Errorf("Expected AlreadyClaimed for a donor with no row, got %v", result.Outcome)
	}

	if _, err := h.svc.Recover(context.Background(), donorA, common.HexToHash("0x03")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestRecoverTransferFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	key := toyKey(t)
	h.donate(t, donorA, key, 8, 0)
	h.rec.Reset()

	h.bank.failTo = donorA
	h.bank.failing.Store(true)

	if _, err := h.svc.Recover(context.Background(), donorA, key.Hash()); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("Expected ErrTransferFailed, got %v", err)
	}

	row, _, _ := h.svc.Donation(donorA, key.Hash())
	if row.Amount.Int64() != 8 || h.pool(t, key.Hash()) != 8 {
		t.Errorf("Expected row and pool restored to 8, got %s and %d", row.Amount, h.pool(t, key.Hash()))
	}
	if len(h.rec.Events()) != 0 {
		t.Errorf("Rolled back recovery must not emit, got %v", h.rec.Types())
	}

	h.bank.failing.Store(false)
	result, err := h.svc.Recover(context.Background(), donorA, key.Hash())
	if err != nil || result.Outcome != OutcomeRecovered || result.Amount.Int64() != 8 {
		t.Errorf("Expected recovery after the bank returns, got %+v, %v", result, err)
	}
}

func TestRecoveryOutcomeString(t *testing.T) {
	tests := map[RecoveryOutcome]string{
		OutcomeAlreadyClaimed: "already_claimed",
		OutcomeTooSoon:        "too_soon",
		OutcomeRecovered:      "recovered",
		RecoveryOutcome(0):    "unknown",
	}
	for outcome, want := range tests {
		if got := outcome.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
