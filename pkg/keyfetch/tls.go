package keyfetch

import (
	cryptorand "crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// ClientParams configures the TLS client used to read server certificates
type ClientParams struct {
	// ServerName for SNI and hostname verification
	ServerName string

	// RootCAs overrides the system pool
	RootCAs *x509.CertPool

	// SkipVerify reads the certificate without validating the chain. The
	// returned key is only as trustworthy as the network path.
	SkipVerify bool
}

// NewClientConfig returns a TLS client configuration for key discovery.
// Public sites still negotiate TLS 1.2, so that is the floor.
func NewClientConfig(params ClientParams) *tls.Config {
	return &tls.Config{
		ServerName: params.ServerName,
		RootCAs:    params.RootCAs,
		MinVersion: tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		Renegotiation:      tls.RenegotiateNever,
		InsecureSkipVerify: params.SkipVerify,
	}
}

// SelfSignedCertificate builds an in-memory RSA certificate for hosts.
// For local serving and tests only.
func SelfSignedCertificate(hosts []string, bits int, validFor time.Duration) (tls.Certificate, *x509.Certificate, error) {
	privateKey, err := rsa.GenerateKey(cryptorand.Reader, bits)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := cryptorand.Int(cryptorand.Reader, serialNumberLimit)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"RSADonations Development"},
			CommonName:   "RSADonations Test Certificate",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(cryptorand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(derBytes)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{derBytes},
		PrivateKey:  privateKey,
		Leaf:        leaf,
	}, leaf, nil
}
