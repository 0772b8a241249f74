// Package httpprober probes the node's HTTPS endpoint for health checks.
package httpprober

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultTimeout is the default timeout for probes.
const DefaultTimeout = 5 * time.Second

// maxBodyBytes bounds how much of a response body is drained.
const maxBodyBytes = 64 << 10

const userAgent = "ledgerctl-healthcheck/1.0"

// Prober implements out.Prober over HTTPS.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	roots   *x509.CertPool
}

// Option configures the Prober.
type Option func(*Prober)

// WithTimeout sets the probe timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// WithRootCAs verifies the node certificate against pool instead of
// accepting any certificate.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(p *Prober) {
		p.roots = pool
	}
}

// LoadCAFile reads a PEM bundle, typically the network's service certificate.
func LoadCAFile(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// New creates a new prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if p.roots != nil {
			tlsCfg.RootCAs = p.roots
		} else {
			// #nosec G402 - nodes serve a self-signed network certificate;
			// the probe checks reachability only.
			tlsCfg.InsecureSkipVerify = true
		}

		p.client = &http.Client{
			Timeout: p.timeout,
			Transport: &http.Transport{
				TLSClientConfig:   tlsCfg,
				DisableKeepAlives: true,
			},
			// Don't follow redirects - we want to see the actual response
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return p
}

// Probe sends a GET request and returns the status code and response time
// in milliseconds. Exceeding the timeout is reported as an error.
func (p *Prober) Probe(ctx context.Context, url string) (int, int64, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, time.Since(start).Milliseconds(), fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	return resp.StatusCode, time.Since(start).Milliseconds(), nil
}
