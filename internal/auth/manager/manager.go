package manager

import (
	"context"
	"fmt"
	"net/http"

	"identgate/internal/apierror"
	"identgate/internal/auth"
	"identgate/internal/auth/header"
	"identgate/internal/auth/mtls"
	"identgate/internal/config"
	"identgate/internal/observability/logging"
	"identgate/internal/observability/metrics"
)

// Config selects the optional authenticators of the chain
type Config struct {
	// HeaderAuth enables the trusted header fallback when set
	HeaderAuth *header.Config
}

// Manager resolves request identities by running the client certificate
// authenticator first and the header authenticator, when configured, second
type Manager struct {
	logger         *logging.Logger
	metrics        *metrics.Collector
	authenticators []auth.Authenticator
}

// NewManager creates a manager running authenticators in order. The first
// outcome that is not NotApplicable ends the chain.
func NewManager(authenticators []auth.Authenticator, logger *logging.Logger, metrics *metrics.Collector) *Manager {
	return &Manager{
		authenticators: authenticators,
		logger:         logger.WithModule("auth.manager"),
		metrics:        metrics,
	}
}

// New creates the identity resolution chain for cfg
func New(cfg Config, logger *logging.Logger, metrics *metrics.Collector) (*Manager, error) {
	authenticators := []auth.Authenticator{mtls.New(logger)}

	if cfg.HeaderAuth != nil {
		headerAuth, err := header.New(*cfg.HeaderAuth, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize header authenticator: %w", err)
		}
		authenticators = append(authenticators, headerAuth)
	}

	return NewManager(authenticators, logger, metrics), nil
}

// NewManagerFromConfig creates a Manager with authenticators configured from application config
func NewManagerFromConfig(cfg *config.Config, logger *logging.Logger, metrics *metrics.Collector) (*Manager, error) {
	var managerCfg Config

	if cfg.Auth.Header.Enabled {
		managerCfg.HeaderAuth = &header.Config{
			UsernameHeader: cfg.Auth.Header.UsernameHeader,
			GroupHeader:    cfg.Auth.Header.GroupHeader,
		}
		logger.Info("Header authentication enabled",
			"username_header", cfg.Auth.Header.UsernameHeader,
			"group_header", cfg.Auth.Header.GroupHeader,
		)
	}

	return New(managerCfg, logger, metrics)
}

// GetAuthenticators returns the authenticators in chain order
func (m *Manager) GetAuthenticators() []auth.Authenticator {
	return m.authenticators
}

// Resolve runs the chain against req
func (m *Manager) Resolve(ctx context.Context, req auth.Request) auth.Outcome {
	logger := logging.FromContextOr(ctx, m.logger)

	outcome := auth.Forward()
	for _, authenticator := range m.authenticators {
		outcome = authenticator.Authenticate(ctx, req)
		if outcome.Status != auth.NotApplicable {
			break
		}
	}

	m.metrics.RecordAuthentication(outcome.Method, outcome.Status.String())

	switch outcome.Status {
	case auth.Succeeded:
		logger.Debug("Identity resolved",
			"auth_method", outcome.Method,
			"username", outcome.User.Username(),
		)
	case auth.Failed:
		logger.Error("Identity resolution failed",
			"auth_method", outcome.Method,
			"status", outcome.HTTPStatus,
			logging.Err(outcome.Err),
		)
	default:
		logger.Debug("No authenticator applied")
	}

	return outcome
}

// Middleware resolves the identity of each request. A resolved identity is
// stored in the request context; a request without credentials passes
// through anonymously; a failed resolution is answered with an error.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		outcome := m.Resolve(ctx, auth.FromHTTP(r))

		switch outcome.Status {
		case auth.Failed:
			logger := logging.FromContextOr(ctx, m.logger)
			apierror.RespondStatus(w, logger, outcome.HTTPStatus, outcome.Err)
			return
		case auth.Succeeded:
			ctx = auth.ContextWithUser(ctx, outcome.User)
			ctx = auth.ContextWithMethod(ctx, outcome.Method)
			if logger := logging.LoggerFromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("username", outcome.User.Username()))
			}
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}
