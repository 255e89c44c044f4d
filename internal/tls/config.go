package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"identgate/internal/observability/logging"
)

// Config holds the server TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string

	// ClientCAPaths lists the CA certificates client certificates must chain
	// to. Empty disables client certificate authentication.
	ClientCAPaths []string

	// RequireClientCert rejects handshakes without a verified client certificate
	RequireClientCert bool
}

// ServerConfig creates a TLS configuration for the server. Client
// certificates are verified during the handshake, so anything that reaches a
// handler has already been checked against the client CA pool.
func (c *Config) ServerConfig() (*tls.Config, error) {
	logger := c.Logger.WithModule("tls")
	logger.Debug("Initializing TLS configuration")

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	if len(c.ClientCAPaths) == 0 {
		logger.Info("TLS configured without client certificate authentication")
		return tlsConfig, nil
	}

	pool, err := LoadCertPool(c.ClientCAPaths)
	if err != nil {
		return nil, err
	}
	tlsConfig.ClientCAs = pool

	if c.RequireClientCert {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	tlsConfig.VerifyConnection = func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) > 0 {
			logger.Debug("Client certificate verified",
				"fingerprint", logging.Fingerprint(cs.PeerCertificates[0].Raw),
			)
		}
		return nil
	}

	logger.Info("TLS configured with client certificate authentication",
		"client_ca_files", c.ClientCAPaths,
		"require_client_cert", c.RequireClientCert,
	)
	return tlsConfig, nil
}

// LoadCertPool reads PEM encoded CA certificates from paths into a new pool
func LoadCertPool(paths []string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse client CA file: %s", path)
		}
	}
	return pool, nil
}
