package server

import (
	"crypto/tls"
	"fmt"

	"identgate/internal/auth/manager"
	"identgate/internal/config"
	"identgate/internal/health"
	"identgate/internal/observability"
	tlsconfig "identgate/internal/tls"
)

// LivenessCondition is reported OK while the main listener is serving
const LivenessCondition = "http"

// NewFromConfig creates a new server from configuration
func NewFromConfig(cfg *config.Config) (*Server, error) {
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup := &tlsconfig.Config{
			Logger:            logger,
			CertPath:          cfg.TLS.CertPath,
			KeyPath:           cfg.TLS.KeyPath,
			ClientCAPaths:     cfg.TLS.ClientCAPaths,
			RequireClientCert: cfg.TLS.RequireClientCert,
		}

		tlsCfg, err = tlsSetup.ServerConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	authManager, err := manager.NewManagerFromConfig(cfg, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authentication manager: %w", err)
	}

	readiness := health.NewRegistry("readiness")
	liveness := health.NewRegistry("liveness")
	if err := obs.Metrics.Register(readiness.Collector(), liveness.Collector()); err != nil {
		return nil, fmt.Errorf("failed to register health metrics: %w", err)
	}

	var healthOptions []health.HandlerOption
	if cfg.Health.FailureStatus != 0 {
		healthOptions = append(healthOptions, health.WithFailureStatus(cfg.Health.FailureStatus))
	}

	router := NewRouter(RouterConfig{
		Readiness:     readiness,
		Liveness:      liveness,
		HealthOptions: healthOptions,
		Identity:      authManager.Middleware,
	}, logger)

	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	handler := obs.Middleware(recoverPanics(logger)(router))

	return New(serverConfig, handler, obs.MetricsHandler(), liveness.Condition(LivenessCondition), logger), nil
}
