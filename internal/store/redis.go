package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrKeyNotFound is returned by RedisClient.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// RedisClient is the minimal Redis surface the store needs. GoRedisAdapter
// implements it; tests inject a fake.
type RedisClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	// SetAll writes every value and adds every set member in one MULTI/EXEC.
	SetAll(ctx context.Context, values map[string][]byte, members map[string][]string) error
	Publish(ctx context.Context, channel string, message []byte) error
	Close() error
}

// redisBackend stores each record under <prefix><kind>:<id> and keeps one
// id set per kind at <prefix><kind>:ids.
type redisBackend struct {
	client    RedisClient
	keyPrefix string
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client RedisClient, keyPrefix string) Store {
	if keyPrefix == "" {
		keyPrefix = "fairgov:"
	}
	return &recordStore{b: &redisBackend{client: client, keyPrefix: keyPrefix}}
}

func (r *redisBackend) recordKey(kind, id string) string {
	return r.keyPrefix + kind + ":" + id
}

func (r *redisBackend) indexKey(kind string) string {
	return r.keyPrefix + kind + ":ids"
}

func (r *redisBackend) load(ctx context.Context, kind, id string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.recordKey(kind, id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", kind, err)
	}
	return data, true, nil
}

func (r *redisBackend) list(ctx context.Context, kind string) ([][]byte, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey(kind))
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", kind, err)
	}
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		data, found, err := r.load(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		if !found {
			slog.Warn("[RedisStore] Indexed record missing", "kind", kind, "id", id)
			continue
		}
		out = append(out, data)
	}
	return out, nil
}

func (r *redisBackend) commit(ctx context.Context, recs []record) error {
	values := make(map[string][]byte, len(recs))
	members := make(map[string][]string)
	for _, rec := range recs {
		values[r.recordKey(rec.kind, rec.id)] = rec.data
		idx := r.indexKey(rec.kind)
		members[idx] = append(members[idx], rec.id)
	}
	if err := r.client.SetAll(ctx, values, members); err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}

func (r *redisBackend) close() error {
	return r.client.Close()
}
