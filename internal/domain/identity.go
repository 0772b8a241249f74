// Package domain contains pure business types without external dependencies.
// These types are used throughout the application and have no tags or framework dependencies.
package domain

import (
	"fmt"
	"strings"
)

// VolumeSuffix is appended to the container name to derive its data volume.
const VolumeSuffix = "-vol"

// Identity binds the managed container to its persistent volume.
// The volume name is always derived, never configured on its own.
type Identity struct {
	name string
}

// NewIdentity validates a container name and returns its identity.
func NewIdentity(name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, fmt.Errorf("%w: container name must not be empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(name, " /\\:") {
		return Identity{}, fmt.Errorf("%w: invalid container name %q", ErrInvalidConfig, name)
	}
	return Identity{name: name}, nil
}

// MustIdentity is NewIdentity for constants and tests.
func MustIdentity(name string) Identity {
	id, err := NewIdentity(name)
	if err != nil {
		panic(err)
	}
	return id
}

// Name returns the container name.
func (i Identity) Name() string {
	return i.name
}

// Volume returns the data volume name.
func (i Identity) Volume() string {
	return i.name + VolumeSuffix
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.name
}
