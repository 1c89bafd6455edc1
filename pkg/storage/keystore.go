package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/argon2"

	"github.com/coventry/RSADonations/internal/security"
	"github.com/coventry/RSADonations/pkg/crypto/hash"
	"github.com/coventry/RSADonations/pkg/crypto/rand"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

const (
	keyFileVersion = 2
	saltLength     = 32
)

// KeyMetadata is the plaintext part of a key file. It identifies the key
// without the password.
type KeyMetadata struct {
	Version    int         `json:"version"`
	KeyHash    common.Hash `json:"key_hash"`
	BitLength  uint64      `json:"bit_length"`
	Exponent   uint64      `json:"exponent"`
	CreatedAt  time.Time   `json:"created_at"`
	ModifiedAt time.Time   `json:"modified_at"`
	KDF        KDFParams   `json:"kdf"`
}

// KDFParams records the Argon2id cost used to derive the file key
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
	Salt    []byte `json:"salt"`
}

// EncryptedKey is the on-disk form. The ciphertext is AES-256-GCM over the
// RLP-encoded secret, authenticated against KeyHash.
type EncryptedKey struct {
	Metadata   KeyMetadata `json:"metadata"`
	Nonce      []byte      `json:"nonce"`
	Ciphertext []byte      `json:"ciphertext"`
	Checksum   common.Hash `json:"checksum"`
}

// secretKey is what gets encrypted. The modulus and exponent are rebuilt
// from the factors.
type secretKey struct {
	Exponent  *big.Int
	BitLength uint64
	D         *big.Int
	P         *big.Int
	Q         *big.Int
}

func (s *secretKey) wipe() {
	security.SecureZeroBigInt(s.D)
	security.SecureZeroBigInt(s.P)
	security.SecureZeroBigInt(s.Q)
}

func (s *secretKey) privateKey() (*rsakey.PrivateKey, error) {
	if s.P == nil || s.Q == nil || s.D == nil || s.Exponent == nil {
		return nil, ErrInvalidKey
	}
	n := new(big.Int).Mul(s.P, s.Q)
	pub, err := rsakey.NewPublicKey(n, s.Exponent, s.BitLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &rsakey.PrivateKey{
		PublicKey: pub,
		D:         new(big.Int).Set(s.D),
		Primes:    [2]*big.Int{new(big.Int).Set(s.P), new(big.Int).Set(s.Q)},
	}, nil
}

// KeyStoreConfig configures a FileKeyStore
type KeyStoreConfig struct {
	// FilePath is where the key file lives
	FilePath string

	// FileMode must not grant group or other access (default: 0600)
	FileMode os.FileMode

	// Argon2id cost
	Argon2Time    uint32
	Argon2Memory  uint32 // KiB
	Argon2Threads uint8
	Argon2KeyLen  uint32 // must be 32 for AES-256

	MinPasswordLength int
}

// DefaultKeyStoreConfig returns interactive-strength Argon2id settings
func DefaultKeyStoreConfig(filePath string) *KeyStoreConfig {
	return &KeyStoreConfig{
		FilePath:          filePath,
		FileMode:          0600,
		Argon2Time:        3,
		Argon2Memory:      64 * 1024,
		Argon2Threads:     4,
		Argon2KeyLen:      32,
		MinPasswordLength: 12,
	}
}

// Validate rejects configurations that would store a key weakly
func (c *KeyStoreConfig) Validate() error {
	switch {
	case c.FilePath == "":
		return fmt.Errorf("%w: empty file path", ErrInvalidConfig)
	case c.FileMode&0077 != 0:
		return fmt.Errorf("%w: file mode %o grants group or other access", ErrInvalidConfig, c.FileMode)
	case c.Argon2Time < 1:
		return fmt.Errorf("%w: argon2 time must be at least 1", ErrInvalidConfig)
	case c.Argon2Memory < 8*1024:
		return fmt.Errorf("%w: argon2 memory must be at least 8 MiB", ErrInvalidConfig)
	case c.Argon2Threads < 1:
		return fmt.Errorf("%w: argon2 threads must be at least 1", ErrInvalidConfig)
	case c.Argon2KeyLen != 32:
		return fmt.Errorf("%w: key length must be 32 bytes", ErrInvalidConfig)
	case c.MinPasswordLength < 8:
		return fmt.Errorf("%w: minimum password length must be at least 8", ErrInvalidConfig)
	}
	return nil
}

func (c *KeyStoreConfig) validatePassword(password string) error {
	if len(password) < c.MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, c.MinPasswordLength)
	}

	var letter, digit bool
	for _, ch := range password {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
			letter = true
		case ch >= '0' && ch <= '9':
			digit = true
		}
	}
	if !letter || !digit {
		return fmt.Errorf("%w: must contain both letters and numbers", ErrWeakPassword)
	}
	return nil
}

func deriveKey(password string, params KDFParams, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), params.Salt, params.Time, params.Memory, params.Threads, keyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// FileKeyStore keeps one key holder's private key in a password-encrypted
// file
type FileKeyStore struct {
	config *KeyStoreConfig
	now    func() time.Time
}

// NewFileKeyStore validates config and returns a store
func NewFileKeyStore(config *KeyStoreConfig) (*FileKeyStore, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &FileKeyStore{config: config, now: time.Now}, nil
}

// Save encrypts key under password and atomically replaces the file. The
// creation time of an existing file is kept.
func (fs *FileKeyStore) Save(key *rsakey.PrivateKey, password string) error {
	if key == nil || key.D == nil || key.Primes[0] == nil || key.Primes[1] == nil {
		return ErrInvalidKey
	}
	if err := fs.config.validatePassword(password); err != nil {
		return err
	}

	secret := &secretKey{
		Exponent:  key.E(),
		BitLength: key.BitLength,
		D:         key.D,
		P:         key.Primes[0],
		Q:         key.Primes[1],
	}
	plaintext, err := rlp.EncodeToBytes(secret)
	if err != nil {
		return fmt.Errorf("storage: encode key: %w", err)
	}
	defer security.SecureZero(plaintext)

	salt, err := rand.Bytes(saltLength)
	if err != nil {
		return err
	}
	kdf := KDFParams{
		Time:    fs.config.Argon2Time,
		Memory:  fs.config.Argon2Memory,
		Threads: fs.config.Argon2Threads,
		Salt:    salt,
	}
	fileKey := deriveKey(password, kdf, fs.config.Argon2KeyLen)
	defer security.SecureZero(fileKey)

	gcm, err := newGCM(fileKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	nonce, err := rand.Bytes(gcm.NonceSize())
	if err != nil {
		return err
	}
	keyHash := key.PublicKey.Hash()
	ciphertext := gcm.Seal(nil, nonce, plaintext, keyHash.Bytes())

	now := fs.now().UTC()
	meta := KeyMetadata{
		Version:    keyFileVersion,
		KeyHash:    keyHash,
		BitLength:  key.BitLength,
		Exponent:   key.E().Uint64(),
		CreatedAt:  now,
		ModifiedAt: now,
		KDF:        kdf,
	}
	if existing, err := fs.GetMetadata(); err == nil {
		meta.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(&EncryptedKey{
		Metadata:   meta,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Checksum:   hash.Keccak256(ciphertext),
	})
	if err != nil {
		return fmt.Errorf("storage: encode key file: %w", err)
	}
	return fs.writeFile(data)
}

// Load decrypts the key file. The decrypted key must hash to the key hash
// recorded in the file.
func (fs *FileKeyStore) Load(password string) (*rsakey.PrivateKey, error) {
	encrypted, err := fs.readFile()
	if err != nil {
		return nil, err
	}
	meta := encrypted.Metadata

	sum := hash.Keccak256(encrypted.Ciphertext)
	if !security.ConstantTimeCompare(sum.Bytes(), encrypted.Checksum.Bytes()) {
		return nil, ErrChecksumMismatch
	}

	fileKey := deriveKey(password, meta.KDF, fs.config.Argon2KeyLen)
	defer security.SecureZero(fileKey)
	gcm, err := newGCM(fileKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(encrypted.Nonce) != gcm.NonceSize() {
		return nil, ErrInvalidNonce
	}
	plaintext, err := gcm.Open(nil, encrypted.Nonce, encrypted.Ciphertext, meta.KeyHash.Bytes())
	if err != nil {
		return nil, ErrInvalidPassword
	}
	defer security.SecureZero(plaintext)

	var secret secretKey
	if err := rlp.DecodeBytes(plaintext, &secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupted, err)
	}
	defer secret.wipe()

	key, err := secret.privateKey()
	if err != nil {
		return nil, err
	}
	if key.PublicKey.Hash() != meta.KeyHash {
		key.Destroy()
		return nil, ErrKeyMismatch
	}
	return key, nil
}

// ChangePassword re-encrypts the stored key under newPassword
func (fs *FileKeyStore) ChangePassword(oldPassword, newPassword string) error {
	if err := fs.config.validatePassword(newPassword); err != nil {
		return err
	}
	key, err := fs.Load(oldPassword)
	if err != nil {
		return err
	}
	defer key.Destroy()
	return fs.Save(key, newPassword)
}

// GetMetadata reads the plaintext header without the password
func (fs *FileKeyStore) GetMetadata() (*KeyMetadata, error) {
	encrypted, err := fs.readFile()
	if err != nil {
		return nil, err
	}
	return &encrypted.Metadata, nil
}

// Exists reports whether the key file is present
func (fs *FileKeyStore) Exists() bool {
	_, err := os.Stat(fs.config.FilePath)
	return err == nil
}

// Delete overwrites the file with random bytes, then removes it
func (fs *FileKeyStore) Delete() error {
	info, err := os.Stat(fs.config.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return ErrKeyNotFound
	}
	if err != nil {
		return err
	}

	noise, err := rand.Bytes(int(info.Size()) + 1)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.config.FilePath, noise, fs.config.FileMode); err != nil {
		return err
	}
	return os.Remove(fs.config.FilePath)
}

// writeFile writes through a temp file and renames it into place
func (fs *FileKeyStore) writeFile(data []byte) error {
	path := fs.config.FilePath
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.config.FileMode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: write key file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: sync key file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: close key file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: install key file: %w", err)
	}
	return nil
}

// readFile refuses files whose mode differs from the configured one
func (fs *FileKeyStore) readFile() (*EncryptedKey, error) {
	path := fs.config.FilePath
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	if info.Mode().Perm() != fs.config.FileMode {
		return nil, fmt.Errorf("%w: file mode %o, expected %o", ErrPermissionDenied, info.Mode().Perm(), fs.config.FileMode)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var encrypted EncryptedKey
	if err := json.Unmarshal(data, &encrypted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupted, err)
	}
	if encrypted.Metadata.Version != keyFileVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, encrypted.Metadata.Version, keyFileVersion)
	}
	return &encrypted, nil
}
