package custody

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Recover refunds the donor's row once its deadline has passed. Outcomes
// are checked in order: a row swept by a claim reports
// OutcomeAlreadyClaimed, a row before its deadline reports OutcomeTooSoon,
// otherwise the amount is refunded. A donor with no row has timestamp 0
// and so reports OutcomeAlreadyClaimed.
func (s *Service) Recover(ctx context.Context, donor common.Address, keyHash common.Hash) (RecoveryResult, error) {
	if err := ctx.Err(); err != nil {
		return RecoveryResult{}, err
	}

	unlock := s.locks.lock(keyHash)
	defer unlock()

	if _, err := s.mustKey(keyHash); err != nil {
		return RecoveryResult{}, err
	}

	lastClaim, err := s.st.lastClaim(keyHash)
	if err != nil {
		return RecoveryResult{}, err
	}
	row, _, err := s.st.donation(keyHash, donor)
	if err != nil {
		return RecoveryResult{}, err
	}
	pool, err := s.st.pool(keyHash)
	if err != nil {
		return RecoveryResult{}, err
	}

	result := RecoveryResult{
		Amount:   new(big.Int),
		Deadline: row.RecoveryDeadline,
		Pool:     pool,
	}

	if !row.validAfter(lastClaim) {
		result.Outcome = OutcomeAlreadyClaimed
		s.metrics.observeRecovery(result.Outcome, false)
		s.log.DebugEvent().
			Hash("key_hash", keyHash).
			Address("donor", donor).
			Int64("last_claim", lastClaim).
			Msg("Recovery after claim")
		s.emit(DonationAlreadyClaimed{Donor: donor, KeyHash: keyHash, LastClaim: lastClaim})
		return result, nil
	}

	now := s.now()
	if now < row.RecoveryDeadline {
		result.Outcome = OutcomeTooSoon
		s.metrics.observeRecovery(result.Outcome, false)
		s.log.DebugEvent().
			Hash("key_hash", keyHash).
			Address("donor", donor).
			Int64("deadline", row.RecoveryDeadline).
			Int64("now", now).
			Msg("Recovery before deadline")
		s.emit(DonationRecoveryTooSoon{Donor: donor, KeyHash: keyHash, Deadline: row.RecoveryDeadline, Now: now})
		return result, nil
	}

	refund := cloneBigInt(row.Amount)
	newPool := new(big.Int).Sub(pool, refund)
	if newPool.Sign() < 0 {
		return RecoveryResult{}, fmt.Errorf("%w: donor amount %s exceeds pool %s", errCorruptRow, refund, pool)
	}
	row.Amount = new(big.Int)

	snap, err := s.st.snapshot(donationKey(keyHash, donor), poolKey(keyHash))
	if err != nil {
		return RecoveryResult{}, err
	}
	batch := s.st.db.NewBatch()
	if err := put(batch, donationKey(keyHash, donor), newStoredDonation(row)); err != nil {
		return RecoveryResult{}, err
	}
	if err := put(batch, poolKey(keyHash), newPool); err != nil {
		return RecoveryResult{}, err
	}
	if err := batch.Write(); err != nil {
		return RecoveryResult{}, fmt.Errorf("custody: commit recovery: %w", err)
	}

	if err := s.payout(ctx, snap, payment{to: donor, amount: refund}); err != nil {
		return RecoveryResult{}, err
	}

	result.Outcome = OutcomeRecovered
	result.Amount = refund
	result.Pool = newPool
	s.metrics.observeRecovery(result.Outcome, pool.Sign() > 0 && newPool.Sign() == 0)
	s.log.InfoEvent().
		Hash("key_hash", keyHash).
		Address("donor", donor).
		Amount("amount", refund).
		Amount("pool", newPool).
		Msg("Recovered donation")
	s.emit(DonationRecovered{
		Donor:   donor,
		KeyHash: keyHash,
		Amount:  cloneBigInt(refund),
		Pool:    cloneBigInt(newPool),
	})
	return result, nil
}

type payment struct {
	to     common.Address
	amount *big.Int
}

// payout runs transfers in order after bookkeeping is committed. Zero
// amounts are skipped. If the first transfer fails the committed rows are
// restored from snap. Once any transfer has gone through the commit stands,
// and the error names what was left unpaid.
func (s *Service) payout(ctx context.Context, snap snapshot, payments ...payment) error {
	paid := false
	for i, p := range payments {
		if p.amount.Sign() == 0 {
			continue
		}
		err := s.bank.Transfer(ctx, p.to, new(big.Int).Set(p.amount))
		if err == nil {
			paid = true
			continue
		}

		s.metrics.observeTransferFailure()
		if paid {
			unpaid := payments[i:]
			for _, u := range unpaid {
				if u.amount.Sign() == 0 {
					continue
				}
				s.log.ErrorEvent().
					Err(err).
					Address("to", u.to).
					Amount("amount", u.amount).
					Msg("Payout left unpaid after partial transfer")
			}
			return &PartialPayoutError{Unpaid: p.to, Amount: sumPayments(unpaid), Err: err}
		}

		if restoreErr := s.st.restore(snap); restoreErr != nil {
			s.log.ErrorEvent().
				Err(restoreErr).
				Address("to", p.to).
				Msg("Failed to roll back after transfer failure")
			return fmt.Errorf("%w: %v (rollback failed: %v)", ErrTransferFailed, err, restoreErr)
		}
		s.log.WarnEvent().
			Err(err).
			Address("to", p.to).
			Amount("amount", p.amount).
			Msg("Transfer failed, rolled back")
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func sumPayments(payments []payment) *big.Int {
	total := new(big.Int)
	for _, p := range payments {
		total.Add(total, p.amount)
	}
	return total
}
