/*
redis.go - Redis-backed admit counters

PURPOSE:
  The cross-process Guard implementation. All date counters of a stay are
  evaluated and incremented inside one Lua script, so two concurrent
  acquires for the last slot cannot both win regardless of which server
  instance they land on.

KEY SCHEME:
  admit:{property}:{roomType}:{date} -> integer admit count
  Keys carry a TTL comfortably past the stay date, so counters for the past
  clean themselves up and drift cannot accumulate forever.
*/
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayware/admission-engine/admission"
)

// acquireScript checks every date counter against the limit, then increments
// all of them. Counters below the observed store demand are floored to it
// first, so a cold counter cannot re-grant capacity that storage already
// holds. Atomic by virtue of being a single script evaluation.
var acquireScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local observed = tonumber(ARGV[3])
for i = 1, #KEYS do
  local current = tonumber(redis.call('GET', KEYS[i]) or '0')
  if current < observed then
    current = observed
  end
  if current >= limit then
    return 0
  end
end
for i = 1, #KEYS do
  local current = tonumber(redis.call('GET', KEYS[i]) or '0')
  if current < observed then
    current = observed
  end
  redis.call('SET', KEYS[i], current + 1)
  redis.call('EXPIRE', KEYS[i], ttl)
end
return 1
`)

// releaseScript decrements without going below zero.
var releaseScript = redis.NewScript(`
for i = 1, #KEYS do
  local current = tonumber(redis.call('GET', KEYS[i]) or '0')
  if current > 0 then
    redis.call('DECR', KEYS[i])
  end
end
return 1
`)

// counterTTL keeps counters alive well past any horizon the sweep covers.
const counterTTL = 90 * 24 * time.Hour

// Redis implements Guard on a redis client shared by all server instances.
type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

func (r *Redis) Acquire(ctx context.Context, key CounterKey, dates []admission.Date, observed, limit int) (bool, error) {
	if limit <= 0 || len(dates) == 0 {
		return false, nil
	}

	keys := counterKeys(key, dates)
	res, err := acquireScript.Run(ctx, r.Client, keys, limit, int(counterTTL.Seconds()), observed).Int()
	if err != nil {
		return false, fmt.Errorf("guard acquire: %w", err)
	}
	return res == 1, nil
}

func (r *Redis) Release(ctx context.Context, key CounterKey, dates []admission.Date) error {
	keys := counterKeys(key, dates)
	if err := releaseScript.Run(ctx, r.Client, keys).Err(); err != nil {
		return fmt.Errorf("guard release: %w", err)
	}
	return nil
}

func counterKeys(key CounterKey, dates []admission.Date) []string {
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = fmt.Sprintf("admit:%s:%s:%s", key.PropertyID, key.RoomTypeID, d)
	}
	return keys
}

var _ Guard = (*Redis)(nil)
