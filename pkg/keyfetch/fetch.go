// Package keyfetch discovers the RSA public key a domain serves over TLS so
// donors can address a pool to the operator of that domain.
package keyfetch

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coventry/RSADonations/internal/security"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
)

const (
	defaultPort    = "443"
	defaultTimeout = 10 * time.Second
	maxDomainLen   = 253
)

// ServerKey is the RSA key found on a server's leaf certificate
type ServerKey struct {
	// E is the public exponent
	E int

	// N is the modulus
	N *big.Int

	// Size is the modulus width in bits as reported by the certificate
	Size int

	// Key is the modulus rounded up to whole words, ready to donate to
	Key rsakey.PublicKey
}

// KeyHash returns the custody identity of the key
func (k *ServerKey) KeyHash() common.Hash {
	return k.Key.Hash()
}

type serverKeyJSON struct {
	E            int      `json:"e"`
	N            string   `json:"n"`
	Size         int      `json:"size"`
	BitLength    uint64   `json:"bitLength"`
	KeyHash      string   `json:"keyHash"`
	ModulusWords []string `json:"modulusWords"`
}

// MarshalJSON renders the key with n in decimal and the word encoding in hex
func (k *ServerKey) MarshalJSON() ([]byte, error) {
	words := make([]string, k.Key.Modulus.Len())
	for i := range words {
		word := k.Key.Modulus.Word(i)
		words[i] = word.Hex()
	}
	return json.Marshal(serverKeyJSON{
		E:            k.E,
		N:            k.N.String(),
		Size:         k.Size,
		BitLength:    k.Key.BitLength,
		KeyHash:      k.KeyHash().Hex(),
		ModulusWords: words,
	})
}

// FromCertificate extracts the RSA key from cert
func FromCertificate(cert *x509.Certificate) (*ServerKey, error) {
	if cert == nil {
		return nil, ErrNoCertificate
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	key, err := rsakey.FromRSA(pub)
	if err != nil {
		return nil, err
	}
	return &ServerKey{
		E:    pub.E,
		N:    new(big.Int).Set(pub.N),
		Size: pub.N.BitLen(),
		Key:  key,
	}, nil
}

// Fetcher dials servers and reads their leaf certificate
type Fetcher struct {
	// Port defaults to 443
	Port string

	// Timeout bounds the dial and handshake, default 10s
	Timeout time.Duration

	// RootCAs overrides the system pool
	RootCAs *x509.CertPool

	// SkipVerify accepts any certificate chain
	SkipVerify bool
}

// ValidateDomain rejects names that are not a bare host
func ValidateDomain(domain string) error {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ErrInvalidDomain
	}
	if err := security.SanitizeInput(domain, maxDomainLen); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	if strings.ContainsAny(domain, ":/?#@ ") {
		return ErrInvalidDomain
	}
	return nil
}

// Fetch connects to domain and returns the RSA key from its leaf certificate
func (f *Fetcher) Fetch(ctx context.Context, domain string) (*ServerKey, error) {
	domain = strings.TrimSpace(domain)
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}

	port := f.Port
	if port == "" {
		port = defaultPort
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: NewClientConfig(ClientParams{
			ServerName: domain,
			RootCAs:    f.RootCAs,
			SkipVerify: f.SkipVerify,
		}),
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, port))
	if err != nil {
		return nil, fmt.Errorf("keyfetch: dial %s: %w", domain, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, ErrNoCertificate
	}
	return FromCertificate(state.PeerCertificates[0])
}
