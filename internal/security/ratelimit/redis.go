package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore shares attempt history between API instances. Attempts live in a sorted set
// scored by unix milliseconds, a block marker lives in its own key holding the block start.
// Each decision runs as one Lua script so concurrent callers never read a stale count.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are namespaced with prefix ("rl" when empty).
func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Both keys of one limit share a hash tag so the script also runs on a cluster.
func (s *RedisStore) attemptsKey(key string) string {
	return fmt.Sprintf("%s:{%s}:attempts", s.prefix, key)
}

func (s *RedisStore) blockKey(key string) string {
	return fmt.Sprintf("%s:{%s}:block", s.prefix, key)
}

const (
	stateBlocked = 0
	stateOver    = 1
	stateAllowed = 2
)

// KEYS: attempts set, block marker.
// ARGV: now ms, window ms, block ms, max attempts, record (0/1), member.
// Returns {state, live attempts, block start ms}.
var evaluateScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local block = tonumber(ARGV[3])
local max = tonumber(ARGV[4])
local record = ARGV[5] == "1"

local marker = redis.call("GET", KEYS[2])
if marker then
  local start = tonumber(marker)
  if block > 0 and start and now - start < block then
    return {0, 0, start}
  end
  redis.call("DEL", KEYS[2])
end

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])

if count >= max then
  if record and block > 0 then
    redis.call("SET", KEYS[2], now, "PX", block)
  end
  return {1, count, 0}
end

if record then
  redis.call("ZADD", KEYS[1], now, ARGV[6])
  redis.call("PEXPIRE", KEYS[1], window)
  count = count + 1
end
return {2, count, 0}
`)

func (s *RedisStore) evaluate(ctx context.Context, key string, cfg Config, now time.Time, record bool) (Result, error) {
	flag := "0"
	if record {
		flag = "1"
	}
	out, err := evaluateScript.Run(ctx, s.rdb,
		[]string{s.attemptsKey(key), s.blockKey(key)},
		now.UnixMilli(), cfg.Window.Milliseconds(), cfg.BlockDuration.Milliseconds(),
		cfg.MaxAttempts, flag, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("evaluate %s: %w", key, err)
	}
	if len(out) != 3 {
		return Result{}, fmt.Errorf("evaluate %s: unexpected reply %v", key, out)
	}

	switch out[0] {
	case stateBlocked:
		return Result{
			Allowed:           false,
			RemainingAttempts: 0,
			ResetTime:         time.UnixMilli(out[2]).Add(cfg.resetAfter()),
			IsBlocked:         true,
		}, nil
	case stateOver:
		return Result{
			Allowed:           false,
			RemainingAttempts: 0,
			ResetTime:         now.Add(cfg.resetAfter()),
			IsBlocked:         cfg.BlockDuration > 0,
		}, nil
	}

	return Result{
		Allowed:           true,
		RemainingAttempts: cfg.MaxAttempts - int(out[1]),
		ResetTime:         now.Add(cfg.Window),
		IsBlocked:         false,
	}, nil
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, cfg Config, now time.Time) (Result, error) {
	return s.evaluate(ctx, key, cfg, now, true)
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, key string, cfg Config, now time.Time) (Result, error) {
	return s.evaluate(ctx, key, cfg, now, false)
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.attemptsKey(key), s.blockKey(key)).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}
