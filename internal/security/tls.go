package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// LoadServerTLS loads the HTTPS certificate and key. An expired
// certificate is an error.
func LoadServerTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parse server certificate: %w", err)
	}
	if time.Now().After(leaf.NotAfter) {
		return nil, fmt.Errorf("server certificate expired at %s", leaf.NotAfter.Format(time.RFC3339))
	}
	cert.Leaf = leaf

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
