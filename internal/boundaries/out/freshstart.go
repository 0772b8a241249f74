package out

import "context"

// FreshStarter creates a brand new node container and volume from empty
// state. It is opaque to this module and must only be invoked once the
// previous container and volume are gone.
type FreshStarter interface {
	FreshStart(ctx context.Context) error
}
