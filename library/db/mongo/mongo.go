// Package mongo provides a wrapper for the MongoDB client.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultTimeout = 30 * time.Second

// DB wraps a connected mongo client bound to one database.
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	DB(name string) *mongo.Database
	CurrentDB() *mongo.Database
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
}

type db struct {
	cli      *mongo.Client
	dialInfo DialInfo
}

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(info DialInfo) string {
	if info.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s/%s",
			url.QueryEscape(info.User), url.QueryEscape(info.Pwd),
			info.Addr, info.DBName)
	}

	return fmt.Sprintf("mongodb://%s/%s", info.Addr, info.DBName)
}

// NewDB connects, pings, and returns a DB bound to dialInfo.DBName.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(buildMongoURI(dialInfo)))
	if err != nil {
		return nil, errors.Wrapf(err, "connect mongo %s", dialInfo.Addr)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrapf(err, "ping mongo %s", dialInfo.Addr)
	}

	return &db{
		cli:      cli,
		dialInfo: dialInfo,
	}, nil
}

func (d *db) Close(ctx context.Context) error {
	return errors.Wrap(d.cli.Disconnect(ctx), "disconnect mongo")
}

func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

func (d *db) DB(name string) *mongo.Database {
	return d.cli.Database(name)
}

func (d *db) CurrentDB() *mongo.Database {
	return d.DB(d.dialInfo.DBName)
}

// NotFound check if no document match
func NotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
