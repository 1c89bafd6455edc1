package keyfetch

import "errors"

var (
	// ErrInvalidDomain is returned when a domain is empty, too long or
	// carries a port, path or null byte
	ErrInvalidDomain = errors.New("keyfetch: invalid domain")

	// ErrNoCertificate is returned when the server presented no certificate
	ErrNoCertificate = errors.New("keyfetch: server presented no certificate")

	// ErrNotRSA is returned when the leaf certificate key is not RSA
	ErrNotRSA = errors.New("keyfetch: leaf certificate key is not RSA")

	errRateLimited = errors.New("keyfetch: rate limit exceeded")
)
