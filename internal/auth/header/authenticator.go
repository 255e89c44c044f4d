package header

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"identgate/internal/auth"
	"identgate/internal/observability/logging"
)

// Config holds header authenticator configuration
type Config struct {
	// UsernameHeader carries the username set by the trusted upstream
	UsernameHeader string

	// GroupHeader carries group memberships, one per header occurrence
	GroupHeader string
}

// Validate checks that both header names are usable
func (c Config) Validate() error {
	if c.UsernameHeader == "" {
		return fmt.Errorf("header authentication enabled but no username header provided")
	}
	if c.GroupHeader == "" {
		return fmt.Errorf("header authentication enabled but no group header provided")
	}
	if strings.EqualFold(c.UsernameHeader, c.GroupHeader) {
		return fmt.Errorf("username header and group header must differ, both are '%s'", c.UsernameHeader)
	}
	return nil
}

// Authenticator trusts identity headers injected by an upstream proxy. It does
// no validation of the values; only deploy it behind a proxy that strips these
// headers from client requests.
type Authenticator struct {
	logger *logging.Logger
	config Config
}

// New creates a new header authenticator
func New(config Config, logger *logging.Logger) (*Authenticator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Authenticator{
		logger: logger.WithModule("auth.header"),
		config: Config{
			UsernameHeader: http.CanonicalHeaderKey(config.UsernameHeader),
			GroupHeader:    http.CanonicalHeaderKey(config.GroupHeader),
		},
	}, nil
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "header"
}

// Authenticate reads the username and groups from the configured headers
func (a *Authenticator) Authenticate(ctx context.Context, req auth.Request) auth.Outcome {
	logger := logging.FromContextOr(ctx, a.logger)

	username, ok := req.Header(a.config.UsernameHeader)
	if !ok {
		logger.Debug("No username header present", "header", a.config.UsernameHeader)
		return auth.Forward()
	}

	user := auth.NewUserInfo(username, req.HeaderValues(a.config.GroupHeader))
	logger.Debug("Header authentication successful",
		"username", user.Username(),
		"groups", user.Groups(),
	)

	return auth.Success(a.Name(), user)
}
