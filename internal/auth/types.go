// Package auth holds the identity model shared by all authenticators and the
// contract they follow: every authenticator inspects a Request and returns an
// Outcome that either carries a UserInfo, forwards to the next authenticator,
// or fails hard.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/exp/slices"
)

// MissingUsername is used when a credential carries no usable common name
const MissingUsername = "system:missing"

// UserInfo is an authenticated identity. It is immutable once constructed.
type UserInfo struct {
	username string
	groups   []string
}

// NewUserInfo creates a UserInfo, copying groups
func NewUserInfo(username string, groups []string) *UserInfo {
	return &UserInfo{
		username: username,
		groups:   slices.Clone(groups),
	}
}

// Username returns the principal name
func (u *UserInfo) Username() string {
	return u.username
}

// Groups returns a copy of the group memberships in encounter order
func (u *UserInfo) Groups() []string {
	return slices.Clone(u.groups)
}

// MemberOf reports whether group is exactly one of the user's groups
func (u *UserInfo) MemberOf(group string) bool {
	return slices.Contains(u.groups, group)
}

// MarshalJSON implements json.Marshaler
func (u *UserInfo) MarshalJSON() ([]byte, error) {
	groups := u.groups
	if groups == nil {
		groups = []string{}
	}
	return json.Marshal(struct {
		Username string   `json:"username"`
		Groups   []string `json:"groups"`
	}{u.username, groups})
}

// Status is the state of an authentication Outcome
type Status int

const (
	// NotApplicable means the authenticator does not apply; try the next one
	NotApplicable Status = iota
	// Succeeded means an identity was established
	Succeeded
	// Failed means a credential was offered but is unusable
	Failed
)

func (s Status) String() string {
	switch s {
	case NotApplicable:
		return "not_applicable"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of one authenticator, or of the whole chain
type Outcome struct {
	Status Status

	// User is set when Status is Succeeded
	User *UserInfo

	// Method names the authenticator that produced a Succeeded or Failed outcome
	Method string

	// HTTPStatus and Err are set when Status is Failed
	HTTPStatus int
	Err        error
}

// Success returns a Succeeded outcome
func Success(method string, user *UserInfo) Outcome {
	return Outcome{Status: Succeeded, Method: method, User: user}
}

// Forward returns a NotApplicable outcome
func Forward() Outcome {
	return Outcome{Status: NotApplicable}
}

// Failure returns a Failed outcome
func Failure(method string, httpStatus int, err error) Outcome {
	return Outcome{Status: Failed, Method: method, HTTPStatus: httpStatus, Err: err}
}

// Request is the view of an inbound request that authenticators need
type Request interface {
	// Header returns the first value of the named header
	Header(name string) (string, bool)

	// HeaderValues returns every value of the named header in order
	HeaderValues(name string) []string

	// ClientCertificate returns the DER of the end-entity client certificate
	// when the connection negotiated mutual TLS
	ClientCertificate() ([]byte, bool)
}

// Authenticator resolves an identity from a request
type Authenticator interface {
	// Name returns the name of this authenticator
	Name() string

	// Authenticate inspects the request and reports an Outcome
	Authenticate(ctx context.Context, req Request) Outcome
}

// CertificateParseError is returned when a presented client certificate is
// not a well-formed certificate structure
type CertificateParseError struct {
	Err error
}

func (e *CertificateParseError) Error() string {
	return fmt.Sprintf("failed to parse client certificate: %v", e.Err)
}

func (e *CertificateParseError) Unwrap() error {
	return e.Err
}

// httpRequest adapts *http.Request to Request
type httpRequest struct {
	r *http.Request
}

// FromHTTP wraps an *http.Request
func FromHTTP(r *http.Request) Request {
	return httpRequest{r: r}
}

func (h httpRequest) Header(name string) (string, bool) {
	values := h.r.Header.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (h httpRequest) HeaderValues(name string) []string {
	return h.r.Header.Values(name)
}

func (h httpRequest) ClientCertificate() ([]byte, bool) {
	if h.r.TLS == nil || len(h.r.TLS.PeerCertificates) == 0 {
		return nil, false
	}
	return h.r.TLS.PeerCertificates[0].Raw, true
}
