package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"identgate/internal/config"
	"identgate/internal/health"
	"identgate/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type certAuthority struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func newCertAuthority(t *testing.T) *certAuthority {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test client CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &certAuthority{cert: cert, key: key}
}

func (ca *certAuthority) issueClient(t *testing.T, cn string, ous ...string) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: cn, OrganizationalUnit: ous},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestWhoami_MutualTLS(t *testing.T) {
	ca := newCertAuthority(t)
	f := newFixture(t)

	srv := httptest.NewUnstartedServer(f.router)
	pool := x509.NewCertPool()
	pool.AddCert(ca.cert)
	srv.TLS = &tls.Config{ClientAuth: tls.VerifyClientCertIfGiven, ClientCAs: pool}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.Transport.(*http.Transport).TLSClientConfig.Certificates = []tls.Certificate{
		ca.issueClient(t, "alice", "admins"),
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/whoami", nil)
	require.NoError(t, err)
	req.Header.Set("X-Remote-User", "mallory")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"username":"alice","groups":["admins"]}`, string(body))
}

func TestServer_ServeAndStop(t *testing.T) {
	liveness := health.NewRegistry("liveness")
	serving := liveness.Condition(LivenessCondition)

	s := New(Config{
		MetricsAddress:  "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, http.NotFoundHandler(), http.NotFoundHandler(), serving, logging.Discard())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	require.Eventually(t, func() bool { return liveness.Snapshot().OK }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{LivenessCondition}, liveness.Snapshot().FailingChecks)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Metrics.Address = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Auth.Header.Enabled = true
	cfg.Auth.Header.UsernameHeader = "X-Remote-User"
	cfg.Auth.Header.GroupHeader = "X-Remote-Group"
	cfg.Health.FailureStatus = http.StatusServiceUnavailable
	cfg.Observability.LogLevel = "error"
	cfg.Observability.LogFormat = "json"

	s, err := NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logging.SetLogLevel("info") })

	serve := func(method, path string, headers map[string]string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, nil)
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, r)
		return rec
	}

	rec := serve(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	rec = serve(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "not serving yet")

	assert.Equal(t, http.StatusNoContent, serve(http.MethodPost, "/approve", nil).Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health/ready", nil).Code)

	rec = serve(http.MethodGet, "/whoami", map[string]string{"X-Remote-User": "dave"})
	require.Equal(t, http.StatusOK, rec.Code)
	var user map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "dave", user["username"])
}

func TestNewFromConfig_InvalidLogFormat(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.LogLevel = "info"
	cfg.Observability.LogFormat = "xml"

	_, err := NewFromConfig(cfg)
	assert.Error(t, err)
}
