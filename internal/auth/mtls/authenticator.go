package mtls

import (
	"context"
	"net/http"

	"identgate/internal/auth"
	"identgate/internal/observability/logging"
)

// Authenticator resolves identities from the client certificate of a mutually
// authenticated connection. Chain validation is the job of the TLS layer; this
// only reads the subject of a certificate that already passed it.
type Authenticator struct {
	logger *logging.Logger
}

// New creates a new mTLS authenticator
func New(logger *logging.Logger) *Authenticator {
	return &Authenticator{
		logger: logger.WithModule("auth.mtls"),
	}
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "mtls"
}

// Authenticate reads the identity from the request's client certificate.
// No certificate forwards to the next authenticator; a certificate that
// cannot be parsed fails the request.
func (a *Authenticator) Authenticate(ctx context.Context, req auth.Request) auth.Outcome {
	logger := logging.FromContextOr(ctx, a.logger)

	der, ok := req.ClientCertificate()
	if !ok {
		logger.Debug("No client certificate presented")
		return auth.Forward()
	}

	attrs, err := ReadSubject(der)
	if err != nil {
		parseErr := &auth.CertificateParseError{Err: err}
		logger.Error("Client certificate could not be parsed",
			logging.Err(parseErr),
			"fingerprint", logging.Fingerprint(der),
		)
		return auth.Failure(a.Name(), http.StatusInternalServerError, parseErr)
	}

	user := UserInfoFromSubject(logger, attrs)
	logger.Debug("mTLS authentication successful",
		"username", user.Username(),
		"groups", user.Groups(),
	)

	return auth.Success(a.Name(), user)
}
