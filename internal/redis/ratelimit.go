package redisclient

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// FixedWindowLimiter is the admission controller for public endpoints: a
// fixed-window counter keyed by (endpoint, tenant, caller IP). A window
// boundary can admit up to twice the limit; that is an accepted
// simplification of the fixed-window scheme.
type FixedWindowLimiter struct {
	client *redis.Client
	window time.Duration
}

func NewFixedWindowLimiter(client *redis.Client, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client: client,
		window: window,
	}
}

// The first increment of a window owns setting its expiry, making
// read-reset-increment atomic.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Allow counts one call against the endpoint's window and returns
// ErrLimitExceeded once the window holds more than max calls.
func (l *FixedWindowLimiter) Allow(ctx context.Context, endpoint, tenantID, callerIP string, max int) error {
	if max <= 0 {
		return nil
	}

	key := limiterKey(endpoint, tenantID, callerIP)
	res, err := incrScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("rate limit incr: %w", err)
	}
	if res > int64(max) {
		return ErrLimitExceeded
	}
	return nil
}

func limiterKey(endpoint, tenantID, callerIP string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", endpoint, tenantID, callerIP)
	return fmt.Sprintf("rl:%x", h.Sum64())
}
