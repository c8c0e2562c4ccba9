// Package kv is a SQL-backed implementation of the registry state store.
package kv

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	errors "github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-doc-registry/library/db/kv"
)

var (
	_ kv.Store = new(Kv)

	regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
)

// Kv is a key-value store over database/sql.
type Kv struct {
	opt *option
	db  *sql.DB
}

type option struct {
	tableName string
}

// Option is a function that configures the kv
type Option func(*option) error

func applyOpts(opts ...Option) (*option, error) {
	// fill default
	o := &option{
		tableName: "kv",
	}

	// apply opts
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return o, nil
}

// WithTableName is a option to set table name
func WithTableName(tableName string) Option {
	return func(o *option) error {
		if !regexpTableName.MatchString(tableName) {
			return errors.Errorf("invalid table name: %s", tableName)
		}
		o.tableName = tableName
		return nil
	}
}

// NewKv create a new kv
func NewKv(db *sql.DB, opts ...Option) (*Kv, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "apply opts")
	}

	store := &Kv{
		opt: opt,
		db:  db,
	}

	if err := store.setup(); err != nil {
		return nil, errors.Wrap(err, "setup kv")
	}

	return store, nil
}

func (s *Kv) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + s.opt.tableName + ` (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`

	if _, err := s.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create kv table")
	}

	return nil
}

// Set stores the key-value pair, overwriting any previous value.
func (s *Kv) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	now := time.Now().UTC()
	stmt := `
INSERT INTO ` + s.opt.tableName + ` (key, value, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT(key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, stmt, key, value, now, now); err != nil {
		return errors.Wrap(err, "upsert kv item")
	}

	return nil
}

// Get retrieves the key's value.
func (s *Kv) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidKey(key); err != nil {
		return nil, errors.WithStack(err)
	}

	var value []byte
	stmt := `SELECT value FROM ` + s.opt.tableName + ` WHERE key = $1 LIMIT 1`
	err := s.db.QueryRowContext(ctx, stmt, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(kv.ErrKeyNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "failed to get key")
	}

	return value, nil
}

// Exists checks whether a key exists.
func (s *Kv) Exists(ctx context.Context, key string) (bool, error) {
	if err := kv.ValidKey(key); err != nil {
		return false, errors.WithStack(err)
	}

	var n int
	stmt := `SELECT COUNT(1) FROM ` + s.opt.tableName + ` WHERE key = $1`
	if err := s.db.QueryRowContext(ctx, stmt, key).Scan(&n); err != nil {
		return false, errors.Wrap(err, "failed to check existence")
	}

	return n != 0, nil
}

// Del removes the key from the store.
func (s *Kv) Del(ctx context.Context, key string) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	stmt := `DELETE FROM ` + s.opt.tableName + ` WHERE key = $1`
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return errors.Wrap(err, "failed to delete key")
	}
	return nil
}

// Keys returns every stored key beginning with prefix, sorted.
func (s *Kv) Keys(ctx context.Context, prefix string) ([]string, error) {
	stmt := `SELECT key FROM ` + s.opt.tableName + ` WHERE key LIKE $1 || '%' ESCAPE '\' ORDER BY key`
	rows, err := s.db.QueryContext(ctx, stmt, escapeLikePrefix(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "query keys")
	}
	defer rows.Close() //nolint:errcheck

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate keys")
	}

	return keys, nil
}

// escapeLikePrefix escapes LIKE metacharacters so a prefix matches literally.
func escapeLikePrefix(prefix string) string {
	out := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, prefix[i])
	}
	return string(out)
}
