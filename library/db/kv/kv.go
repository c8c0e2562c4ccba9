// Package kv defines the key-value state store consumed by the registry,
// plus an in-memory implementation for tests and dry runs.
package kv

import (
	"context"
	"regexp"

	"github.com/Laisky/errors/v2"
)

var (
	// ErrKeyNotFound is returned when the requested key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	regexpKey = regexp.MustCompile(`^[a-zA-Z0-9_:@.\-]{1,192}$`)
)

// Store is the durable key-value state store.
//
// All registry state lives behind this interface; callers are responsible
// for serializing mutations that must be atomic as a unit.
type Store interface {
	// Get returns the value for key, or an error wrapping ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys returns every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ValidKey checks the key against the shared key charset.
func ValidKey(key string) error {
	if !regexpKey.MatchString(key) {
		return errors.Errorf("invalid key: %s", key)
	}

	return nil
}
