package httpprober

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_SelfSignedNode(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/node/state", r.URL.Path)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"state":"PartOfNetwork"}`))
	}))
	defer server.Close()

	p := New()
	status, latency, err := p.Probe(context.Background(), server.URL+"/node/state")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, latency, int64(0))
}

func TestProber_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	status, _, err := New().Probe(context.Background(), server.URL+"/node/state")

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, status)
}

func TestProber_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := New(WithTimeout(100 * time.Millisecond))
	_, _, err := p.Probe(context.Background(), server.URL+"/node/state")

	assert.Error(t, err)
}

func TestProber_ConnectionRefused(t *testing.T) {
	server := httptest.NewTLSServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, _, err := New().Probe(context.Background(), url+"/node/state")
	assert.Error(t, err)
}

func TestProber_VerifiesAgainstRootCAs(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	caFile := filepath.Join(t.TempDir(), "service_cert.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, pemBytes, 0600))

	pool, err := LoadCAFile(caFile)
	require.NoError(t, err)

	status, _, err := New(WithRootCAs(pool)).Probe(context.Background(), server.URL+"/node/state")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestLoadCAFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(path, []byte("not pem"), 0600))

	_, err := LoadCAFile(path)
	assert.Error(t, err)

	_, err = LoadCAFile(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
