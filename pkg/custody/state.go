package custody

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/coventry/RSADonations/pkg/crypto/bignum"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
	"github.com/coventry/RSADonations/pkg/storage"
)

var (
	keyPrefix       = []byte("custody/key/")
	donationPrefix  = []byte("custody/donation/")
	poolPrefix      = []byte("custody/pool/")
	noncePrefix     = []byte("custody/nonce/")
	lastClaimPrefix = []byte("custody/last-claim/")
)

func keyKey(keyHash common.Hash) []byte {
	return append(append([]byte{}, keyPrefix...), keyHash.Bytes()...)
}

// Donation rows are grouped under their key so a key's rows share a prefix.
func donationKey(keyHash common.Hash, donor common.Address) []byte {
	out := append(append([]byte{}, donationPrefix...), keyHash.Bytes()...)
	return append(out, donor.Bytes()...)
}

func poolKey(keyHash common.Hash) []byte {
	return append(append([]byte{}, poolPrefix...), keyHash.Bytes()...)
}

func nonceKey(keyHash common.Hash) []byte {
	return append(append([]byte{}, noncePrefix...), keyHash.Bytes()...)
}

func lastClaimKey(keyHash common.Hash) []byte {
	return append(append([]byte{}, lastClaimPrefix...), keyHash.Bytes()...)
}

type storedKey struct {
	Modulus   []byte
	Exponent  *big.Int
	BitLength uint64
}

func newStoredKey(pk rsakey.PublicKey) *storedKey {
	return &storedKey{
		Modulus:   pk.Modulus.Bytes(),
		Exponent:  pk.Exponent.ToBig(),
		BitLength: pk.BitLength,
	}
}

func (s *storedKey) toPublicKey() (*rsakey.PublicKey, error) {
	modulus, err := bignum.FromBytes(s.Modulus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRow, err)
	}
	if s.Exponent == nil {
		return nil, errCorruptRow
	}
	exponent, overflow := uint256.FromBig(s.Exponent)
	if overflow {
		return nil, errCorruptRow
	}
	pk := &rsakey.PublicKey{Modulus: modulus, Exponent: *exponent, BitLength: s.BitLength}
	if err := pk.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRow, err)
	}
	return pk, nil
}

type storedDonation struct {
	Amount           *big.Int
	RecoveryDeadline *big.Int
	Timestamp        *big.Int
}

func newStoredDonation(d *Donation) *storedDonation {
	return &storedDonation{
		Amount:           cloneBigInt(d.Amount),
		RecoveryDeadline: big.NewInt(d.RecoveryDeadline),
		Timestamp:        big.NewInt(d.Timestamp),
	}
}

func (s *storedDonation) toDonation() *Donation {
	out := &Donation{Amount: cloneBigInt(s.Amount)}
	if s.RecoveryDeadline != nil {
		out.RecoveryDeadline = s.RecoveryDeadline.Int64()
	}
	if s.Timestamp != nil {
		out.Timestamp = s.Timestamp.Int64()
	}
	return out
}

// state is the table layer over a storage.Database. Reads go straight to
// the backend; writes are staged on a batch owned by the caller.
type state struct {
	db storage.Database
}

func (s *state) get(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("%w: %v", errCorruptRow, err)
	}
	return true, nil
}

func put(batch storage.Batch, key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("custody: encode row: %w", err)
	}
	batch.Put(key, encoded)
	return nil
}

func (s *state) publicKey(keyHash common.Hash) (*rsakey.PublicKey, bool, error) {
	var stored storedKey
	ok, err := s.get(keyKey(keyHash), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	pk, err := stored.toPublicKey()
	if err != nil {
		return nil, false, err
	}
	return pk, true, nil
}

func (s *state) donation(keyHash common.Hash, donor common.Address) (*Donation, bool, error) {
	var stored storedDonation
	ok, err := s.get(donationKey(keyHash, donor), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Donation{Amount: big.NewInt(0)}, false, nil
	}
	return stored.toDonation(), true, nil
}

func (s *state) pool(keyHash common.Hash) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := s.get(poolKey(keyHash), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (s *state) nonce(keyHash common.Hash) (uint64, error) {
	var nonce uint64
	if _, err := s.get(nonceKey(keyHash), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

func (s *state) lastClaim(keyHash common.Hash) (int64, error) {
	ts := new(big.Int)
	if _, err := s.get(lastClaimKey(keyHash), ts); err != nil {
		return 0, err
	}
	return ts.Int64(), nil
}

// openPools counts keys whose stored pool is non-zero
func (s *state) openPools() (int, error) {
	var (
		count  int
		decErr error
	)
	err := s.db.Iterate(poolPrefix, func(_, raw []byte) bool {
		amount := new(big.Int)
		if err := rlp.DecodeBytes(raw, amount); err != nil {
			decErr = fmt.Errorf("%w: %v", errCorruptRow, err)
			return false
		}
		if amount.Sign() > 0 {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, decErr
}

// snapshot captures the raw bytes behind keys so a committed batch can be
// undone exactly. A nil entry means the key was absent.
type snapshot map[string][]byte

func (s *state) snapshot(keys ...[]byte) (snapshot, error) {
	snap := make(snapshot, len(keys))
	for _, key := range keys {
		raw, err := s.db.Get(key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			snap[string(key)] = nil
		case err != nil:
			return nil, err
		default:
			snap[string(key)] = raw
		}
	}
	return snap, nil
}

func (s *state) restore(snap snapshot) error {
	batch := s.db.NewBatch()
	for key, raw := range snap {
		if raw == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), raw)
	}
	return batch.Write()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
