package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestGenerateSelfSigned(t *testing.T) {
	tmpDir := t.TempDir()

	hosts := []string{"taskboard.local", "192.168.1.100"}
	paths, err := GenerateSelfSigned(tmpDir, "server", 30, hosts)
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	certPEM, err := os.ReadFile(paths.CertFile)
	if err != nil {
		t.Fatalf("failed to read server.crt: %v", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("server.crt is not PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	if cert.Subject.CommonName != "server" {
		t.Errorf("unexpected CN: got %s, want server", cert.Subject.CommonName)
	}
	if !slices.Contains(cert.DNSNames, "localhost") {
		t.Error("DNS names should include localhost")
	}
	if !slices.Contains(cert.DNSNames, "taskboard.local") {
		t.Error("DNS names should include taskboard.local")
	}
	if !slices.ContainsFunc(cert.IPAddresses, func(ip net.IP) bool { return ip.Equal(net.ParseIP("192.168.1.100")) }) {
		t.Error("IP addresses should include 192.168.1.100")
	}
	if len(cert.ExtKeyUsage) == 0 || cert.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth {
		t.Error("cert should have ServerAuth extended key usage")
	}

	info, err := os.Stat(paths.KeyFile)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key permissions = %o, want 600", perm)
	}
}

func TestGenerateSelfSigned_RequiresName(t *testing.T) {
	if _, err := GenerateSelfSigned(t.TempDir(), "", 0, nil); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestLoadServerTLS(t *testing.T) {
	paths, err := GenerateSelfSigned(t.TempDir(), "api", 0, nil)
	if err != nil {
		t.Fatalf("GenerateSelfSigned failed: %v", err)
	}

	cfg, err := LoadServerTLS(paths.CertFile, paths.KeyFile)
	if err != nil {
		t.Fatalf("LoadServerTLS failed: %v", err)
	}
	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", cfg.MinVersion)
	}
	if len(cfg.Certificates) != 1 || cfg.Certificates[0].Leaf == nil {
		t.Error("expected one certificate with parsed leaf")
	}
}

func TestLoadServerTLS_Errors(t *testing.T) {
	dir := t.TempDir()
	a, err := GenerateSelfSigned(dir, "a", 0, nil)
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	b, err := GenerateSelfSigned(dir, "b", 0, nil)
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}

	tests := []struct {
		name     string
		certFile string
		keyFile  string
	}{
		{"missing cert", filepath.Join(dir, "nope.crt"), a.KeyFile},
		{"missing key", a.CertFile, filepath.Join(dir, "nope.key")},
		{"mismatched pair", a.CertFile, b.KeyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadServerTLS(tt.certFile, tt.keyFile); err == nil {
				t.Error("expected error")
			}
		})
	}
}
