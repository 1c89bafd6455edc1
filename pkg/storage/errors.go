package storage

import "errors"

// Database errors
var (
	ErrNotFound = errors.New("storage: not found")
	ErrClosed   = errors.New("storage: database closed")
)

// Key store errors
var (
	ErrInvalidConfig    = errors.New("keystore: invalid config")
	ErrInvalidPassword  = errors.New("keystore: invalid password")
	ErrKeyNotFound      = errors.New("keystore: key file not found")
	ErrInvalidKey       = errors.New("keystore: invalid private key")
	ErrKeyMismatch      = errors.New("keystore: decrypted key does not match recorded key hash")
	ErrStorageCorrupted = errors.New("keystore: key file corrupted")
	ErrPermissionDenied = errors.New("keystore: permission denied")
	ErrWeakPassword     = errors.New("keystore: password too weak")
	ErrInvalidNonce     = errors.New("keystore: invalid nonce")
	ErrEncryptionFailed = errors.New("keystore: encryption failed")
	ErrDecryptionFailed = errors.New("keystore: decryption failed")
	ErrVersionMismatch  = errors.New("keystore: unsupported key file version")
	ErrChecksumMismatch = errors.New("keystore: checksum mismatch")
)
