package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimScript stores a hash record unless one stamped within the window exists.
// KEYS[1]=key ARGV: now_ms, window_ms, ttl_ms, state, ref
var claimScript = redis.NewScript(`
local ts = redis.call("HGET", KEYS[1], "ts")
if ts and (tonumber(ARGV[1]) - tonumber(ts)) < tonumber(ARGV[2]) then
  return redis.call("HGETALL", KEYS[1])
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "state", ARGV[4], "ref", ARGV[5], "ts", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return false
`)

// Redis is a Store backed by redis hashes with native key expiry.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedis(client *redis.Client, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{client: client, prefix: o.prefix, now: o.now}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Claim(ctx context.Context, key string, rec Record, window, ttl time.Duration) (Record, bool, error) {
	if key == "" {
		return Record{}, false, ErrEmptyKey
	}
	now := r.now()
	res, err := claimScript.Run(ctx, r.client, []string{r.key(key)},
		now.UnixMilli(), window.Milliseconds(), ttlMillis(ttl), rec.State, rec.Ref,
	).Result()
	if errors.Is(err, redis.Nil) {
		rec.Timestamp = time.UnixMilli(now.UnixMilli())
		return rec, true, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency claim %q: %w", key, err)
	}
	fields, ok := res.([]interface{})
	if !ok {
		return Record{}, false, fmt.Errorf("idempotency claim %q: unexpected reply %T", key, res)
	}
	m := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, _ := fields[i].(string)
		v, _ := fields[i+1].(string)
		m[k] = v
	}
	existing, err := decodeRecord(m)
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency claim %q: %w", key, err)
	}
	return existing, false, nil
}

func (r *Redis) Get(ctx context.Context, key string) (Record, bool, error) {
	if key == "" {
		return Record{}, false, ErrEmptyKey
	}
	m, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency get %q: %w", key, err)
	}
	if len(m) == 0 {
		return Record{}, false, nil
	}
	rec, err := decodeRecord(m)
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency get %q: %w", key, err)
	}
	return rec, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, "state", rec.State, "ref", rec.Ref, "ts", rec.Timestamp.UnixMilli())
		p.PExpire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("idempotency put %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("idempotency delete %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }

func decodeRecord(m map[string]string) (Record, error) {
	ms, err := strconv.ParseInt(m["ts"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("decode timestamp %q: %w", m["ts"], err)
	}
	return Record{State: m["state"], Ref: m["ref"], Timestamp: time.UnixMilli(ms)}, nil
}

func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}
