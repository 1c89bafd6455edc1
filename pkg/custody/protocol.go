package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/pkg/crypto/bignum"
	"github.com/coventry/RSADonations/pkg/crypto/hash"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

// buildChallenge derives the message the key holder must sign. The seed
// binds the claim nonce, recipient, reward and invoker:
//
//	seed   = keccak256(uint256(nonce) || recipient || uint256(reward) || invoker)
//	word_i = keccak256(uint256(i) || seed)
//
// The words are concatenated and the whole value is reduced modulo N once.
func buildChallenge(pk *rsakey.PublicKey, nonce uint64, recipient common.Address, reward *big.Int, invoker common.Address) (bignum.Words, error) {
	if reward == nil || reward.Sign() < 0 {
		return bignum.Words{}, ErrInvalidReward
	}
	seed, err := hash.NewPacker().
		Uint64(nonce).
		Address(recipient).
		Big(reward).
		Address(invoker).
		Sum()
	if err != nil {
		return bignum.Words{}, fmt.Errorf("%w: %v", ErrInvalidReward, err)
	}

	expanded, err := hash.ExpandWords(seed, pk.Modulus.Len())
	if err != nil {
		return bignum.Words{}, err
	}
	return bignum.Mod(expanded, pk.Modulus)
}

// Challenge returns the message a claim with these parameters must sign
// under the key's current nonce
func (s *Service) Challenge(keyHash common.Hash, recipient common.Address, relayerReward *big.Int, invoker common.Address) (bignum.Words, error) {
	pk, err := s.mustKey(keyHash)
	if err != nil {
		return bignum.Words{}, err
	}
	nonce, err := s.st.nonce(keyHash)
	if err != nil {
		return bignum.Words{}, err
	}
	return buildChallenge(pk, nonce, recipient, relayerReward, invoker)
}

// Encrypt computes message^e mod N under the registered key
func (s *Service) Encrypt(keyHash common.Hash, message bignum.Words) (bignum.Words, error) {
	pk, err := s.mustKey(keyHash)
	if err != nil {
		return bignum.Words{}, err
	}
	return pk.Encrypt(message)
}

// Verify reports whether signature^e mod N equals the current challenge.
// A signature with the wrong word count is invalid, not an error.
func (s *Service) Verify(keyHash common.Hash, recipient common.Address, relayerReward *big.Int, signature bignum.Words, invoker common.Address) (bool, error) {
	pk, err := s.mustKey(keyHash)
	if err != nil {
		return false, err
	}
	nonce, err := s.st.nonce(keyHash)
	if err != nil {
		return false, err
	}
	return verifySignature(pk, nonce, recipient, relayerReward, signature, invoker)
}

func verifySignature(pk *rsakey.PublicKey, nonce uint64, recipient common.Address, reward *big.Int, signature bignum.Words, invoker common.Address) (bool, error) {
	challenge, err := buildChallenge(pk, nonce, recipient, reward, invoker)
	if err != nil {
		return false, err
	}
	if signature.Len() != pk.Modulus.Len() {
		return false, nil
	}
	encrypted, err := pk.Encrypt(signature)
	if err != nil {
		return false, err
	}
	return encrypted.Equal(challenge), nil
}

// Claim sweeps the pool: the invoker receives the relayer reward and the
// recipient receives the rest. Bookkeeping (pool zeroed, last claim stamped,
// nonce bumped) is committed before any transfer. It is rolled back only if
// the first transfer fails; after that a failure returns *PartialPayoutError.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (*ClaimReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.RelayerReward == nil || req.RelayerReward.Sign() < 0 {
		return nil, ErrInvalidReward
	}

	keyHash := req.Key
	unlock := s.locks.lock(keyHash)
	defer unlock()

	pk, err := s.mustKey(keyHash)
	if err != nil {
		return nil, err
	}
	nonce, err := s.st.nonce(keyHash)
	if err != nil {
		return nil, err
	}

	ok, err := verifySignature(pk, nonce, req.Recipient, req.RelayerReward, req.Signature, req.Invoker)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.observeRejectedSignature()
		s.log.WarnEvent().
			Hash("key_hash", keyHash).
			Address("invoker", req.Invoker).
			Uint64("nonce", nonce).
			Secret("signature", req.Signature.String()).
			Msg("Rejected claim signature")
		return nil, ErrInvalidSignature
	}

	pool, err := s.st.pool(keyHash)
	if err != nil {
		return nil, err
	}
	if pool.Cmp(req.RelayerReward) < 0 {
		return nil, ErrInsufficientPool
	}

	now := s.now()
	snap, err := s.st.snapshot(poolKey(keyHash), lastClaimKey(keyHash), nonceKey(keyHash))
	if err != nil {
		return nil, err
	}
	batch := s.st.db.NewBatch()
	if err := put(batch, poolKey(keyHash), new(big.Int)); err != nil {
		return nil, err
	}
	if err := put(batch, lastClaimKey(keyHash), big.NewInt(now)); err != nil {
		return nil, err
	}
	if err := put(batch, nonceKey(keyHash), nonce+1); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("custody: commit claim: %w", err)
	}

	reward := new(big.Int).Set(req.RelayerReward)
	remainder := new(big.Int).Sub(pool, reward)
	err = s.payout(ctx, snap,
		payment{to: req.Invoker, amount: reward},
		payment{to: req.Recipient, amount: remainder},
	)
	if errors.Is(err, ErrPartialPayout) {
		s.metrics.observeClaim(pool.Sign() > 0)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.observeClaim(pool.Sign() > 0)
	s.log.InfoEvent().
		Hash("key_hash", keyHash).
		Address("recipient", req.Recipient).
		Address("invoker", req.Invoker).
		Amount("swept", pool).
		Amount("reward", reward).
		Uint64("nonce", nonce+1).
		Msg("Claimed pool")
	s.emit(DonationClaimed{
		KeyHash:       keyHash,
		Recipient:     req.Recipient,
		Invoker:       req.Invoker,
		RelayerReward: cloneBigInt(reward),
		Swept:         cloneBigInt(pool),
		Nonce:         nonce,
	})

	return &ClaimReceipt{
		KeyHash:       keyHash,
		Swept:         pool,
		RelayerReward: reward,
		Payout:        remainder,
		Nonce:         nonce + 1,
		ClaimedAt:     now,
	}, nil
}
