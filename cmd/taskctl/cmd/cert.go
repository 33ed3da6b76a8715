package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/taskboard/internal/security"
)

var (
	certName      string
	certOutputDir string
	certValidDays int
	certHosts     string
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Generate a self-signed HTTPS certificate",
	Long: `Generate a self-signed certificate and key for the server's HTTPS
listener (server.tls in the config file).

The certificate includes localhost and any additional hosts specified
with --hosts in the Subject Alternative Names (SAN).

Example:
  taskctl cert --out ./certs
  taskctl cert --name api --out ./certs --hosts tasks.internal,10.0.0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if certOutputDir == "" {
			return fmt.Errorf("--out is required")
		}
		hosts := parseHosts(certHosts)

		PrintVerbose("Generating certificate...")
		PrintVerbose("  Name: %s", certName)
		PrintVerbose("  Output directory: %s", certOutputDir)
		PrintVerbose("  Validity: %d days", certValidDays)
		PrintVerbose("  Additional hosts: %v", hosts)

		paths, err := security.GenerateSelfSigned(certOutputDir, certName, certValidDays, hosts)
		if err != nil {
			return fmt.Errorf("generate certificate: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Certificate generated successfully:\n")
		fmt.Fprintf(w, "  Certificate: %s\n", paths.CertFile)
		fmt.Fprintf(w, "  Private key: %s\n", paths.KeyFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(certCmd)

	certCmd.Flags().StringVar(&certName, "name", "server", "file name prefix for the certificate and key")
	certCmd.Flags().StringVar(&certOutputDir, "out", "", "output directory (required)")
	certCmd.Flags().IntVar(&certValidDays, "valid-days", security.DefaultCertValidDays, "certificate validity in days")
	certCmd.Flags().StringVar(&certHosts, "hosts", "", "comma-separated additional hosts or IPs")
}

func parseHosts(s string) []string {
	if s == "" {
		return nil
	}
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
