package mtls

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"identgate/internal/auth"
	"identgate/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

func cn(v any) pkix.AttributeTypeAndValue {
	return pkix.AttributeTypeAndValue{Type: oidCommonName, Value: v}
}

func ou(v any) pkix.AttributeTypeAndValue {
	return pkix.AttributeTypeAndValue{Type: oidOrganizationalUnit, Value: v}
}

// invalidUTF8 is a UTF8String whose contents are not UTF-8
var invalidUTF8 = asn1.RawValue{Tag: asn1.TagUTF8String, Bytes: []byte{0xff, 0xfe}}

// newCertificate returns the DER of a self-signed certificate whose subject
// holds exactly the given attributes, in order.
func newCertificate(t *testing.T, names ...pkix.AttributeTypeAndValue) []byte {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{ExtraNames: names},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	require.NoError(t, err)
	return der
}

// captureLogger returns a JSON logger and the buffer it writes to
func captureLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.NewLoggerWithWriter(&buf, "debug", logging.FormatJSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logging.SetLogLevel("info") })
	return logger, &buf
}

// warnings decodes every WARN entry written to buf
func warnings(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["level"] == "WARN" {
			out = append(out, entry)
		}
	}
	return out
}

func parse(t *testing.T, logger *logging.Logger, der []byte) *auth.UserInfo {
	t.Helper()
	attrs, err := ReadSubject(der)
	require.NoError(t, err)
	return UserInfoFromSubject(logger, attrs)
}

func TestUserInfoFromSubject_LastCommonNameWins(t *testing.T) {
	logger, buf := captureLogger(t)

	user := parse(t, logger, newCertificate(t, cn("a"), cn("b"), cn("c")))

	assert.Equal(t, "c", user.Username())

	warns := warnings(t, buf)
	require.Len(t, warns, 2)
	assert.Equal(t, "a", warns[0]["ignored"])
	assert.Equal(t, "b", warns[1]["ignored"])
}

func TestUserInfoFromSubject_MissingCommonName(t *testing.T) {
	logger, buf := captureLogger(t)

	user := parse(t, logger, newCertificate(t, ou("ops")))

	assert.Equal(t, auth.MissingUsername, user.Username())
	assert.Equal(t, "system:missing", user.Username())
	assert.Equal(t, []string{"ops"}, user.Groups())
	assert.Empty(t, warnings(t, buf))
}

func TestUserInfoFromSubject_GroupsKeepOrderAndDuplicates(t *testing.T) {
	logger, _ := captureLogger(t)

	user := parse(t, logger, newCertificate(t, ou("x"), cn("alice"), ou("y"), ou("x")))

	assert.Equal(t, "alice", user.Username())
	assert.Equal(t, []string{"x", "y", "x"}, user.Groups())
	assert.True(t, user.MemberOf("y"))
	assert.False(t, user.MemberOf("X"))
}

func TestUserInfoFromSubject_MalformedAttributes(t *testing.T) {
	tests := []struct {
		name      string
		names     []pkix.AttributeTypeAndValue
		wantUser  string
		wantGroup []string
		wantWarns int
	}{
		{
			name:      "malformed common name after valid one is skipped",
			names:     []pkix.AttributeTypeAndValue{cn("alice"), cn(invalidUTF8)},
			wantUser:  "alice",
			wantWarns: 1,
		},
		{
			name:      "valid common name after malformed one is used without override warning",
			names:     []pkix.AttributeTypeAndValue{cn(invalidUTF8), cn("bob")},
			wantUser:  "bob",
			wantWarns: 1,
		},
		{
			name:      "only malformed common name falls back to missing",
			names:     []pkix.AttributeTypeAndValue{cn(asn1.RawValue{Tag: asn1.TagInteger, Bytes: []byte{0x01}})},
			wantUser:  auth.MissingUsername,
			wantWarns: 1,
		},
		{
			name:      "malformed unit is dropped from groups",
			names:     []pkix.AttributeTypeAndValue{cn("carol"), ou("a"), ou(invalidUTF8), ou("b")},
			wantUser:  "carol",
			wantGroup: []string{"a", "b"},
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger(t)

			user := parse(t, logger, newCertificate(t, tt.names...))

			assert.Equal(t, tt.wantUser, user.Username())
			if tt.wantGroup == nil {
				assert.Empty(t, user.Groups())
			} else {
				assert.Equal(t, tt.wantGroup, user.Groups())
			}
			assert.Len(t, warnings(t, buf), tt.wantWarns)
		})
	}
}

func TestUserInfoFromSubject_IgnoresOtherAttributes(t *testing.T) {
	logger, buf := captureLogger(t)

	org := pkix.AttributeTypeAndValue{Type: asn1.ObjectIdentifier{2, 5, 4, 10}, Value: invalidUTF8}
	user := parse(t, logger, newCertificate(t, org, cn("dave")))

	assert.Equal(t, "dave", user.Username())
	assert.Empty(t, warnings(t, buf), "attributes outside CN and OU are never decoded")
}

func TestReadSubject_Malformed(t *testing.T) {
	der := newCertificate(t, cn("alice"))

	tests := []struct {
		name string
		der  []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a certificate")},
		{"truncated", der[:len(der)/2]},
		{"trailing data", append(append([]byte{}, der...), 0x00)},
		{"empty sequence", []byte{0x30, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSubject(tt.der)
			assert.Error(t, err)
		})
	}
}

func TestDecodeAttribute(t *testing.T) {
	tests := []struct {
		name    string
		tag     cbasn1.Tag
		value   []byte
		want    string
		wantErr bool
	}{
		{"utf8", cbasn1.UTF8String, []byte("zoë"), "zoë", false},
		{"utf8 invalid", cbasn1.UTF8String, []byte{0xc3}, "", true},
		{"printable", cbasn1.PrintableString, []byte("Ops Team (EU)"), "Ops Team (EU)", false},
		{"printable with wildcard", cbasn1.PrintableString, []byte("*.example.com"), "*.example.com", false},
		{"printable invalid", cbasn1.PrintableString, []byte("a@b"), "", true},
		{"ia5", cbasn1.IA5String, []byte("a@b.example"), "a@b.example", false},
		{"ia5 invalid", cbasn1.IA5String, []byte{0x80}, "", true},
		{"numeric", tagNumericString, []byte("12 34"), "12 34", false},
		{"numeric invalid", tagNumericString, []byte("12a"), "", true},
		{"visible", tagVisibleString, []byte("v~s"), "v~s", false},
		{"visible invalid", tagVisibleString, []byte{0x07}, "", true},
		{"t61", cbasn1.T61String, []byte{'c', 'a', 'f', 0xe9}, "café", false},
		{"bmp", tagBMPString, []byte{0x00, 'h', 0x00, 'i'}, "hi", false},
		{"bmp terminated", tagBMPString, []byte{0x00, 'h', 0x00, 0x00}, "h", false},
		{"bmp odd length", tagBMPString, []byte{0x00, 'h', 0x00}, "", true},
		{"bmp surrogate pair", tagBMPString, []byte{0xd8, 0x3d, 0xde, 0x00}, "\U0001F600", false},
		{"bmp lone high surrogate", tagBMPString, []byte{0xd8, 0x3d, 0x00, 'a'}, "", true},
		{"bmp trailing high surrogate", tagBMPString, []byte{0x00, 'a', 0xd8, 0x3d}, "", true},
		{"bmp lone low surrogate", tagBMPString, []byte{0xde, 0x00, 0x00, 'a'}, "", true},
		{"integer", cbasn1.INTEGER, []byte{0x01}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAttribute(Attribute{Type: oidCommonName, Tag: tt.tag, Value: tt.value})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAttribute_UnsupportedType(t *testing.T) {
	_, err := DecodeAttribute(Attribute{Tag: cbasn1.OCTET_STRING, Value: []byte{0x01}})
	assert.ErrorIs(t, err, ErrUnsupportedValueType)
}

// certRequest is an auth.Request carrying only a client certificate
type certRequest struct {
	der []byte
}

func (c certRequest) Header(string) (string, bool)      { return "", false }
func (c certRequest) HeaderValues(string) []string      { return nil }
func (c certRequest) ClientCertificate() ([]byte, bool) { return c.der, c.der != nil }

func TestAuthenticator_NoCertificateForwards(t *testing.T) {
	a := New(logging.Discard())

	outcome := a.Authenticate(context.Background(), certRequest{})

	assert.Equal(t, auth.NotApplicable, outcome.Status)
	assert.Nil(t, outcome.User)
}

func TestAuthenticator_ValidCertificate(t *testing.T) {
	a := New(logging.Discard())
	der := newCertificate(t, cn("alice"), ou("admins"), ou("ops"))

	outcome := a.Authenticate(context.Background(), certRequest{der: der})

	require.Equal(t, auth.Succeeded, outcome.Status)
	assert.Equal(t, "mtls", outcome.Method)
	assert.Equal(t, "alice", outcome.User.Username())
	assert.Equal(t, []string{"admins", "ops"}, outcome.User.Groups())
}

func TestAuthenticator_MalformedCertificateFails(t *testing.T) {
	a := New(logging.Discard())

	outcome := a.Authenticate(context.Background(), certRequest{der: []byte{0x30, 0x03, 0x02, 0x01}})

	require.Equal(t, auth.Failed, outcome.Status)
	assert.Equal(t, http.StatusInternalServerError, outcome.HTTPStatus)
	var parseErr *auth.CertificateParseError
	assert.ErrorAs(t, outcome.Err, &parseErr)
	assert.Nil(t, outcome.User)
}
