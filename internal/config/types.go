package config

import "time"

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
		// ClientCAPaths lists the CA certificates used to verify client
		// certificates. Empty disables mutual TLS.
		ClientCAPaths []string
		// RequireClientCert rejects handshakes without a client certificate
		RequireClientCert bool
	}

	// Auth holds identity resolution configuration
	Auth struct {
		// Header holds the trusted upstream header fallback
		Header struct {
			// Enabled indicates whether header authentication is enabled
			Enabled bool
			// UsernameHeader is the header carrying the username
			UsernameHeader string
			// GroupHeader is the header carrying group memberships
			GroupHeader string
		}
	}

	// Health holds health endpoint configuration
	Health struct {
		// FailureStatus, when non-zero, is the HTTP status used for ok:false
		FailureStatus int
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
		// LogFormat is the log format (json, text)
		LogFormat string
	}
}
