// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (CLI)
// and the business logic (use cases).
package in

import (
	"context"
	"io"

	"github.com/bnema/ledgerctl/internal/domain"
)

// ServiceController defines the basic lifecycle verbs over the node container.
type ServiceController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Restart destroys the container and volume and runs fresh-start,
	// after confirmation.
	Restart(ctx context.Context) error
	// Recreate is Restart without the confirmation gate. Callers own the gate.
	Recreate(ctx context.Context) error
	Status(ctx context.Context) (*domain.StatusReport, error)
	Logs(ctx context.Context, opts domain.LogOptions, stdout, stderr io.Writer) error
	Remove(ctx context.Context) error
}
