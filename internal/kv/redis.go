// internal/kv/redis.go
//
// Redis-backed Store.
//
// The production backend.  Keys map straight onto redis keys, TTLs onto
// server-side expiry, and List onto SCAN with a MATCH pattern.  SCAN
// returns keys in arbitrary order, so List sorts before returning.
package kv

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a *redis.Client.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr and pings once so bootstrap fails fast.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: cli}, nil
}

// WrapRedis adopts an existing client (tests, shared pools).
func WrapRedis(cli *redis.Client) *Redis { return &Redis{client: cli} }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeMatch(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.client.Close() }

// escapeMatch quotes glob metacharacters so a literal prefix never acts
// as a pattern.  Subdomains are validated elsewhere, but capture keys
// embed caller-chosen codes.
func escapeMatch(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
