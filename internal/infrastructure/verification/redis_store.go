package verification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/redis/go-redis/v9"
)

// Each key holds a hash {v: version, d: data}. Versions come from one
// shared counter so a deleted-then-recreated key never reuses a version.
var (
	setScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[2])
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'v', v, 'd', ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return v
`)

	casScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if not cur then cur = '0' end
if cur ~= ARGV[1] then return -tonumber(cur) - 1 end
local v = redis.call('INCR', KEYS[2])
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'v', v, 'd', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return v
`)

	cadScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if not cur then cur = '0' end
if cur ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)
)

// RedisStore implements domain.VerificationStore on Redis so that every
// API instance shares one view of codes, windows and locks.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	seqKey string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced by prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		seqKey: prefix + "seq",
	}
}

var _ domain.VerificationStore = (*RedisStore)(nil)

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get implements domain.VerificationStore
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, int64, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), "v", "d").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("verification store get: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, 0, nil
	}

	rawVersion, _ := vals[0].(string)
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("verification store get: corrupt version %q", rawVersion)
	}
	data, _ := vals[1].(string)
	return []byte(data), version, nil
}

// Set implements domain.VerificationStore
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error) {
	v, err := setScript.Run(ctx, s.client, []string{s.key(key), s.seqKey}, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("verification store set: %w", err)
	}
	return v, nil
}

// Delete implements domain.VerificationStore
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("verification store delete: %w", err)
	}
	return nil
}

// CompareAndSwap implements domain.VerificationStore
func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, expected int64, value []byte, ttl time.Duration) (bool, int64, error) {
	res, err := casScript.Run(ctx, s.client, []string{s.key(key), s.seqKey},
		strconv.FormatInt(expected, 10), value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("verification store cas: %w", err)
	}
	// A mismatch is reported as -(current+1)
	if res <= 0 {
		return false, -res - 1, nil
	}
	return true, res, nil
}

// CompareAndDelete implements domain.VerificationStore
func (s *RedisStore) CompareAndDelete(ctx context.Context, key string, expected int64) (bool, error) {
	res, err := cadScript.Run(ctx, s.client, []string{s.key(key)}, strconv.FormatInt(expected, 10)).Int64()
	if err != nil {
		return false, fmt.Errorf("verification store cad: %w", err)
	}
	return res == 1, nil
}
