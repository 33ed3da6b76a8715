// Package security generates and loads the TLS certificates used by the
// taskboard HTTPS listener.
package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultCertValidDays is the default certificate validity (1 year).
const DefaultCertValidDays = 365

// CertPaths locates a certificate and its private key on disk.
type CertPaths struct {
	CertFile string
	KeyFile  string
}

// GenerateSelfSigned writes <name>.crt and <name>.key to outputDir. The
// certificate is valid for the given hosts plus localhost, and is meant for
// development and internal deployments without a public CA.
func GenerateSelfSigned(outputDir, name string, validDays int, hosts []string) (*CertPaths, error) {
	if name == "" {
		return nil, fmt.Errorf("certificate name is required")
	}
	if validDays <= 0 {
		validDays = DefaultCertValidDays
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Taskboard"},
			CommonName:   name,
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.AddDate(0, 0, validDays),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	// Server certs always include localhost
	hosts = appendUnique(hosts, "localhost", "127.0.0.1", "::1")
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := &CertPaths{
		CertFile: filepath.Join(outputDir, name+".crt"),
		KeyFile:  filepath.Join(outputDir, name+".key"),
	}
	if err := writePEM(paths.CertFile, 0644, "CERTIFICATE", certDER); err != nil {
		return nil, err
	}
	// private key with restrictive permissions
	if err := writePEM(paths.KeyFile, 0600, "EC PRIVATE KEY", keyDER); err != nil {
		return nil, err
	}
	return paths, nil
}

func writePEM(path string, perm os.FileMode, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func appendUnique(slice []string, items ...string) []string {
	seen := make(map[string]bool)
	for _, s := range slice {
		seen[s] = true
	}
	for _, item := range items {
		if !seen[item] {
			slice = append(slice, item)
			seen[item] = true
		}
	}
	return slice
}
