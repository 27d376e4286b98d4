// Package redis wraps go-redis for the listing cache.
package redis

import (
	"context"

	"github.com/Laisky/errors/v2"
	gredis "github.com/Laisky/go-redis/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis
type DB struct {
	rdb   *redis.Client
	utils *gredis.Utils
}

// NewDB creates a new DB instance
func NewDB(opt *redis.Options) *DB {
	rdb := redis.NewClient(opt)
	return &DB{
		rdb:   rdb,
		utils: gredis.NewRedisUtils(rdb),
	}
}

// Client returns the raw go-redis client.
func (db *DB) Client() *redis.Client {
	return db.rdb
}

// Utils returns the Laisky helper wrapper around the client.
func (db *DB) Utils() *gredis.Utils {
	return db.utils
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}
	return nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return errors.WithStack(db.rdb.Close())
}
