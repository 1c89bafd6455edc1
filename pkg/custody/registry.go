package custody

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
	"github.com/coventry/RSADonations/pkg/storage"
)

// RegisterOrReuse stores key if it has not been seen and returns its hash.
// Registering the same triple again is a no-op.
func (s *Service) RegisterOrReuse(key rsakey.PublicKey) (common.Hash, bool, error) {
	if err := key.Validate(); err != nil {
		return common.Hash{}, false, err
	}
	keyHash := key.Hash()

	unlock := s.locks.lock(keyHash)
	defer unlock()

	batch := s.st.db.NewBatch()
	created, err := s.stageKey(batch, keyHash, key)
	if err != nil {
		return common.Hash{}, false, err
	}
	if !created {
		return keyHash, false, nil
	}
	if err := batch.Write(); err != nil {
		return common.Hash{}, false, err
	}

	s.announceKey(common.Address{}, keyHash, key)
	return keyHash, true, nil
}

// Lookup returns the key registered under keyHash
func (s *Service) Lookup(keyHash common.Hash) (*rsakey.PublicKey, bool, error) {
	return s.st.publicKey(keyHash)
}

// stageKey adds the key to batch unless it is already stored. Callers hold
// the key's lock.
func (s *Service) stageKey(batch storage.Batch, keyHash common.Hash, key rsakey.PublicKey) (bool, error) {
	ok, err := s.st.db.Has(keyKey(keyHash))
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := put(batch, keyKey(keyHash), newStoredKey(key)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) announceKey(sender common.Address, keyHash common.Hash, key rsakey.PublicKey) {
	s.metrics.observeKeyRegistered()
	s.log.InfoEvent().
		Hash("key_hash", keyHash).
		Uint64("bit_length", key.BitLength).
		Msg("Registered public key")
	s.emit(KeyRegistered{
		Sender:    sender,
		KeyHash:   keyHash,
		BitLength: key.BitLength,
		Exponent:  key.E(),
	})
}

// mustKey loads a registered key or returns ErrKeyNotFound
func (s *Service) mustKey(keyHash common.Hash) (*rsakey.PublicKey, error) {
	pk, ok, err := s.st.publicKey(keyHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	return pk, nil
}
