package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps rate state in a shared redis so any instance can
// serve any user. The whole reservation runs inside one Lua script:
// redis executes scripts atomically, which covers the concurrent
// same-user case without a watch/retry loop.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Mirrors advance(); tonumber() turns malformed values into nil which
// falls back to the defaults, same as the badger backend.
var reserveScript = redis.NewScript(`
local delay = tonumber(redis.call('GET', KEYS[1])) or 0
local next = tonumber(redis.call('GET', KEYS[2])) or 0
local now = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local throttled = 0
if delay < 1 then delay = 1 end
if now < next then
	delay = delay * 2
	if delay > 60 then delay = 60 end
	next = next + delay
	throttled = 1
else
	delay = math.floor(delay / 2)
	if delay < 1 then delay = 1 end
	next = now + delay
end
redis.call('SET', KEYS[1], tostring(delay), 'EX', ttl)
redis.call('SET', KEYS[2], tostring(next), 'EX', ttl)
return {throttled, delay, next}
`)

func (s *RedisStore) Reserve(ctx context.Context, userID string, now int64) (Decision, error) {
	keys := []string{delayKeyPrefix + userID, nextKeyPrefix + userID}
	res, err := reserveScript.Run(ctx, s.client, keys, now, int64(stateTTL.Seconds())).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate state reservation for %s: %w", userID, err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected reservation reply: %T %v", res, res)
	}
	ints := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("unexpected reservation reply element: %T %v", v, v)
		}
		ints[i] = n
	}
	return Decision{Throttled: ints[0] == 1, DelaySeconds: ints[1], NextAllowedAt: ints[2]}, nil
}
