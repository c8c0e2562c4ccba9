// Package redis is a redis-backed implementation of the registry state store.
package redis

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/laisky-doc-registry/library/db/kv"
)

var _ kv.Store = new(DB)

// DB is a wrapper for go-redis that satisfies the state store interface.
type DB struct {
	cli       *redis.Client
	keyPrefix string
}

// NewDB creates a new DB instance.
//
// keyPrefix namespaces every stored key so multiple registries can share
// one redis database.
func NewDB(opt *redis.Options, keyPrefix string) *DB {
	return &DB{
		cli:       redis.NewClient(opt),
		keyPrefix: keyPrefix,
	}
}

// Close releases the underlying client.
func (d *DB) Close() error {
	return errors.Wrap(d.cli.Close(), "close redis client")
}

// Get returns the value for key.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidKey(key); err != nil {
		return nil, errors.WithStack(err)
	}

	val, err := d.cli.Get(ctx, d.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(kv.ErrKeyNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "failed to get key")
	}

	return val, nil
}

// Set stores the value under key.
func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	if err := d.cli.Set(ctx, d.keyPrefix+key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "set key")
	}

	return nil
}

// Del removes key.
func (d *DB) Del(ctx context.Context, key string) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	if err := d.cli.Del(ctx, d.keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "del key")
	}

	return nil
}

// Exists reports whether key is present.
func (d *DB) Exists(ctx context.Context, key string) (bool, error) {
	if err := kv.ValidKey(key); err != nil {
		return false, errors.WithStack(err)
	}

	n, err := d.cli.Exists(ctx, d.keyPrefix+key).Result()
	if err != nil {
		return false, errors.Wrap(err, "check existence")
	}

	return n != 0, nil
}

// Keys returns every stored key beginning with prefix.
func (d *DB) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := d.cli.Scan(ctx, cursor, d.keyPrefix+prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scan keys")
		}

		for _, k := range batch {
			keys = append(keys, k[len(d.keyPrefix):])
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
