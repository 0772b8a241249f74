package out

import "context"

// Prober defines the contract for network probing of the node endpoint.
// This allows for easy mocking in tests.
type Prober interface {
	// Probe sends a request to the URL and returns status code and response time.
	// Returns (statusCode, responseTimeMs, error). A timeout is an error.
	Probe(ctx context.Context, url string) (int, int64, error)
}
