package config

import "errors"

var (
	// ErrUnknownBackend is returned when Backend is not memory or leveldb
	ErrUnknownBackend = errors.New("config: unknown storage backend")

	// ErrMissingDataDir is returned when a persistent backend has no data directory
	ErrMissingDataDir = errors.New("config: data directory required for persistent backend")

	// ErrInvalidLogLevel is returned for an unrecognised log level
	ErrInvalidLogLevel = errors.New("config: invalid log level")

	// ErrInvalidTimeout is returned when the key fetch timeout does not parse
	// or is not positive
	ErrInvalidTimeout = errors.New("config: invalid key fetch timeout")

	// ErrInvalidRate is returned for a negative key fetch rate limit
	ErrInvalidRate = errors.New("config: invalid key fetch rate limit")
)
