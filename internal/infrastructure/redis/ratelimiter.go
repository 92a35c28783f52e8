package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the bucket, arms its expiry on the first hit
// and returns {count, pttl_ms}.
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {c, redis.call("PTTL", KEYS[1])}
`)

// FixedWindowLimiter counts hits per key in Redis. Keys already carry the
// route, the client identity and the window bucket.
type FixedWindowLimiter struct {
	rdb *goredis.Client
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	if c == nil {
		return &FixedWindowLimiter{}
	}
	return &FixedWindowLimiter{rdb: c.rdb}
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Count      int
	RetryAfter time.Duration // zero when allowed
	ResetAt    time.Time
}

// AllowFixedWindow records one hit for key. A nil client or a non-positive
// limit allows everything.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	open := Decision{Allowed: true, Limit: limit, Remaining: limit}
	if limit <= 0 || l.rdb == nil {
		return open, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit redis script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit redis script: unexpected reply length %d", len(res))
	}

	count := int(res[0])
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		Count:     count,
		ResetAt:   time.Now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
