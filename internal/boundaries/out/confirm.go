package out

import (
	"context"
	"fmt"

	"github.com/bnema/ledgerctl/internal/domain"
)

// Confirmer supplies the operator's answer to a confirmation request.
// A cancelled prompt is reported as (false, nil).
type Confirmer interface {
	Confirm(ctx context.Context, req domain.ConfirmRequest) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, req domain.ConfirmRequest) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, req domain.ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// AlwaysConfirm approves every request.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, domain.ConfirmRequest) (bool, error) {
	return true, nil
})

// NeverConfirm declines every request.
var NeverConfirm Confirmer = ConfirmFunc(func(context.Context, domain.ConfirmRequest) (bool, error) {
	return false, nil
})

// Require asks c and maps a decline to domain.ErrUserAborted.
func Require(ctx context.Context, c Confirmer, req domain.ConfirmRequest) error {
	ok, err := c.Confirm(ctx, req)
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", req.Action, domain.ErrUserAborted)
	}
	return nil
}
