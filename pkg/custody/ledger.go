package custody

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/internal/security"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

// Donate records a donation to req.Key, registering the key on first use.
// The donor's deadline is replaced by req.Deadline even when it is earlier
// than the one already on record.
func (s *Service) Donate(ctx context.Context, req DonateRequest) (*DonationReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateDonation(req.Amount, req.Deadline); err != nil {
		return nil, err
	}
	if err := req.Key.Validate(); err != nil {
		return nil, err
	}
	key := req.Key
	return s.donate(req.Donor, key.Hash(), &key, req.Amount, req.Deadline)
}

// DonateToKey records a donation to a key that is already registered
func (s *Service) DonateToKey(ctx context.Context, donor common.Address, keyHash common.Hash, amount *big.Int, deadline int64) (*DonationReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateDonation(amount, deadline); err != nil {
		return nil, err
	}
	return s.donate(donor, keyHash, nil, amount, deadline)
}

func validateDonation(amount *big.Int, deadline int64) error {
	if err := security.ValidatePositive(amount); err != nil {
		return ErrInvalidAmount
	}
	if deadline < 0 {
		return ErrInvalidDeadline
	}
	return nil
}

// donate applies a donation. key is nil when the caller only has the hash.
func (s *Service) donate(donor common.Address, keyHash common.Hash, key *rsakey.PublicKey, amount *big.Int, deadline int64) (*DonationReceipt, error) {
	unlock := s.locks.lock(keyHash)
	defer unlock()

	batch := s.st.db.NewBatch()
	created := false
	if key != nil {
		var err error
		if created, err = s.stageKey(batch, keyHash, *key); err != nil {
			return nil, err
		}
	} else {
		ok, err := s.st.db.Has(keyKey(keyHash))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrKeyNotFound
		}
	}

	lastClaim, err := s.st.lastClaim(keyHash)
	if err != nil {
		return nil, err
	}
	row, _, err := s.st.donation(keyHash, donor)
	if err != nil {
		return nil, err
	}
	pool, err := s.st.pool(keyHash)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prior := new(big.Int)
	if row.validAfter(lastClaim) {
		prior.Set(row.Amount)
	}
	updated := &Donation{
		Amount:           prior.Add(prior, amount),
		RecoveryDeadline: deadline,
		Timestamp:        now,
	}
	poolOpened := pool.Sign() == 0
	newPool := new(big.Int).Add(pool, amount)

	if err := put(batch, donationKey(keyHash, donor), newStoredDonation(updated)); err != nil {
		return nil, err
	}
	if err := put(batch, poolKey(keyHash), newPool); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("custody: commit donation: %w", err)
	}

	if created {
		s.announceKey(donor, keyHash, *key)
	}
	s.metrics.observeDonation(poolOpened)
	s.log.InfoEvent().
		Hash("key_hash", keyHash).
		Address("donor", donor).
		Amount("amount", amount).
		Amount("donor_amount", updated.Amount).
		Amount("pool", newPool).
		Int64("deadline", deadline).
		Msg("Recorded donation")
	s.emit(DonationRecorded{
		Donor:       donor,
		KeyHash:     keyHash,
		DonorAmount: cloneBigInt(updated.Amount),
		Pool:        cloneBigInt(newPool),
		Deadline:    deadline,
	})

	return &DonationReceipt{
		KeyHash:     keyHash,
		Registered:  created,
		DonorAmount: updated.Amount,
		Pool:        newPool,
		Deadline:    deadline,
		Timestamp:   now,
	}, nil
}

// Pool returns the amount currently pooled for keyHash
func (s *Service) Pool(keyHash common.Hash) (*big.Int, error) {
	return s.st.pool(keyHash)
}

// Donation returns the donor's stored row as written, including rows that
// a later claim has invalidated. The bool is false when no row exists.
func (s *Service) Donation(donor common.Address, keyHash common.Hash) (*Donation, bool, error) {
	return s.st.donation(keyHash, donor)
}

// Nonce returns the number of successful claims against keyHash
func (s *Service) Nonce(keyHash common.Hash) (uint64, error) {
	return s.st.nonce(keyHash)
}

// LastClaim returns the unix time of the last claim, or 0
func (s *Service) LastClaim(keyHash common.Hash) (int64, error) {
	return s.st.lastClaim(keyHash)
}
