// Package secrets resolves opaque secret references into private key
// material. Backends re-read their source on every call so rotated
// content is picked up without restarts.
package secrets

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotFound     = errors.New("secret not found")
	ErrNotConnected = errors.New("not connected to secret store")
)

// Resolver resolves a secret reference into a mapping from key name to
// secret content (PEM-encoded private keys for this daemon).
type Resolver interface {
	// Resolve returns the content of the named secret. Implementations
	// must not cache across calls.
	Resolve(ctx context.Context, ref string) (map[string]string, error)
}
