package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "IDENTGATE"

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	Settings.PopulateViperDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}

	config.Server.Address = v.GetString("SERVER_ADDR")
	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	config.Server.ShutdownTimeout = shutdownTimeout

	config.Metrics.Address = v.GetString("METRICS_ADDR")

	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")
	config.TLS.ClientCAPaths = stringSlice(v, "TLS_CLIENT_CA_PATHS")
	config.TLS.RequireClientCert = v.GetBool("TLS_REQUIRE_CLIENT_CERT")

	config.Auth.Header.Enabled = v.GetBool("AUTH_HEADER_ENABLED")
	config.Auth.Header.UsernameHeader = v.GetString("AUTH_HEADER_USERNAME")
	config.Auth.Header.GroupHeader = v.GetString("AUTH_HEADER_GROUP")

	config.Health.FailureStatus = v.GetInt("HEALTH_FAILURE_STATUS")

	config.Observability.LogLevel = v.GetString("LOG_LEVEL")
	config.Observability.LogFormat = v.GetString("LOG_FORMAT")

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// stringSlice reads a list setting. Environment variables arrive as a single
// string, so comma separated entries are split as well.
func stringSlice(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", cfg.Server.ShutdownTimeout)
	}

	if err := validateTLSConfig(cfg); err != nil {
		return err
	}

	if err := validateAuthConfig(cfg); err != nil {
		return err
	}

	if status := cfg.Health.FailureStatus; status != 0 && (status < 100 || status > 599) {
		return fmt.Errorf("health failure status must be 0 or a valid HTTP status, got %d", status)
	}

	return nil
}

// validateTLSConfig validates server and client certificate configuration
func validateTLSConfig(cfg *Config) error {
	if !cfg.TLS.Enabled {
		if len(cfg.TLS.ClientCAPaths) > 0 || cfg.TLS.RequireClientCert {
			return errors.New("client certificate verification requires TLS to be enabled")
		}
		return nil
	}

	if cfg.TLS.CertPath == "" {
		return errors.New("TLS certificate path is required when TLS is enabled")
	}
	if cfg.TLS.KeyPath == "" {
		return errors.New("TLS key path is required when TLS is enabled")
	}

	if err := fileExists("TLS certificate", cfg.TLS.CertPath); err != nil {
		return err
	}
	if err := fileExists("TLS key", cfg.TLS.KeyPath); err != nil {
		return err
	}

	if cfg.TLS.RequireClientCert && len(cfg.TLS.ClientCAPaths) == 0 {
		return errors.New("at least one client CA path is required when client certificates are required")
	}

	for _, caPath := range cfg.TLS.ClientCAPaths {
		if err := fileExists("client CA", caPath); err != nil {
			return err
		}
	}

	return nil
}

// validateAuthConfig validates authentication configuration
func validateAuthConfig(cfg *Config) error {
	h := cfg.Auth.Header
	if !h.Enabled {
		return nil
	}

	if h.UsernameHeader == "" {
		return errors.New("username header is required when header authentication is enabled")
	}
	if h.GroupHeader == "" {
		return errors.New("group header is required when header authentication is enabled")
	}
	if http.CanonicalHeaderKey(h.UsernameHeader) == http.CanonicalHeaderKey(h.GroupHeader) {
		return fmt.Errorf("username and group headers must differ, both are '%s'", h.UsernameHeader)
	}

	return nil
}

func fileExists(what, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s file not found: %s", what, path)
		}
		return fmt.Errorf("failed to stat %s file: %w", what, err)
	}
	return nil
}
