package mongo

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-doc-registry/library/db/kv"
)

var _ kv.Store = new(KvCol)

// kvDoc is one stored key-value pair.
type kvDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// KvCol adapts one mongo collection to the state store interface.
type KvCol struct {
	col *mongo.Collection
}

// NewKvCol binds the state store to the named collection.
func NewKvCol(db DB, colName string) *KvCol {
	return &KvCol{
		col: db.GetCol(colName),
	}
}

// Get returns the value for key.
func (c *KvCol) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidKey(key); err != nil {
		return nil, errors.WithStack(err)
	}

	doc := new(kvDoc)
	if err := c.col.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).
		Decode(doc); err != nil {
		if NotFound(err) {
			return nil, errors.Wrapf(kv.ErrKeyNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "failed to get key")
	}

	return doc.Value, nil
}

// Set stores the value under key.
func (c *KvCol) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	if _, err := c.col.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		&kvDoc{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	); err != nil {
		return errors.Wrap(err, "upsert kv item")
	}

	return nil
}

// Del removes key.
func (c *KvCol) Del(ctx context.Context, key string) error {
	if err := kv.ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	if _, err := c.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return errors.Wrap(err, "failed to delete key")
	}

	return nil
}

// Exists reports whether key is present.
func (c *KvCol) Exists(ctx context.Context, key string) (bool, error) {
	if err := kv.ValidKey(key); err != nil {
		return false, errors.WithStack(err)
	}

	n, err := c.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return false, errors.Wrap(err, "check existence")
	}

	return n != 0, nil
}

// Keys returns every stored key beginning with prefix.
func (c *KvCol) Keys(ctx context.Context, prefix string) ([]string, error) {
	cur, err := c.col.Find(ctx, bson.D{{
		Key: "_id",
		Value: bson.D{
			{Key: "$gte", Value: prefix},
			{Key: "$lt", Value: prefixUpperBound(prefix)},
		},
	}})
	if err != nil {
		return nil, errors.Wrap(err, "find keys")
	}
	defer cur.Close(ctx) //nolint:errcheck

	var keys []string
	for cur.Next(ctx) {
		doc := new(kvDoc)
		if err := cur.Decode(doc); err != nil {
			return nil, errors.Wrap(err, "decode kv item")
		}
		if strings.HasPrefix(doc.Key, prefix) {
			keys = append(keys, doc.Key)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate keys")
	}

	return keys, nil
}

// prefixUpperBound returns the smallest string greater than every
// string carrying prefix, for range scans over _id.
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}

	// all 0xff, match everything above the prefix
	return prefix + "\xff"
}
