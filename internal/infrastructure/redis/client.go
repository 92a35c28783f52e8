package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// Client wraps go-redis. Redis only backs rate limiting here, so callers
// treat it as optional.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  pingTimeout,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
