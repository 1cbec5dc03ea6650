package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/smarthome-app/smarthome-core/internal/infrastructure/config"
)

// RedisStore implements StateStore on Redis.
//
// Current state is a JSON string per path. History is a sorted set per path
// scored by the entry timestamp in microseconds; members start with a
// zero-padded sequence number so equal scores sort by append order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type redisEntry struct {
	ID         string `json:"id,omitempty"`
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	RecordedAt int64  `json:"recorded_at"`
}

// NewRedisClient builds a client from configuration. It does not connect.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisStore wraps client. Keys are namespaced under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// HealthCheck pings the server.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + ":" + path
}

// Read returns the entry at path.
func (s *RedisStore) Read(ctx context.Context, path string) (Entry, bool, error) {
	if err := checkPath(path); err != nil {
		return Entry{}, false, err
	}

	raw, err := s.client.Get(ctx, s.key(path)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading state %s: %w", path, err)
	}

	var stored redisEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Entry{}, false, fmt.Errorf("reading state %s: %w", path, err)
	}
	entry, err := decodeEntry(stored.Kind, stored.Value, stored.RecordedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading state %s: %w", path, err)
	}
	return entry, true, nil
}

// Write replaces the entry at path.
func (s *RedisStore) Write(ctx context.Context, path string, entry Entry) error {
	if err := checkPath(path); err != nil {
		return err
	}

	payload, err := json.Marshal(toRedisEntry("", entry))
	if err != nil {
		return fmt.Errorf("encoding state %s: %w", path, err)
	}
	if err := s.client.Set(ctx, s.key(path), payload, 0).Err(); err != nil {
		return fmt.Errorf("writing state %s: %w", path, err)
	}
	return nil
}

// AppendHistory adds entry to the sorted set at path.
func (s *RedisStore) AppendHistory(ctx context.Context, path string, entry Entry) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}

	seq, err := s.client.Incr(ctx, s.key(path)+":seq").Result()
	if err != nil {
		return "", fmt.Errorf("appending history %s: %w", path, err)
	}
	id := fmt.Sprintf("%020d", seq)

	member, err := json.Marshal(toRedisEntry(id, entry))
	if err != nil {
		return "", fmt.Errorf("encoding history %s: %w", path, err)
	}
	err = s.client.ZAdd(ctx, s.key(path), &redis.Z{
		Score:  float64(entry.Timestamp.UnixMicro()),
		Member: string(member),
	}).Err()
	if err != nil {
		return "", fmt.Errorf("appending history %s: %w", path, err)
	}
	return id, nil
}

// ReadHistory returns the newest records under path.
func (s *RedisStore) ReadHistory(ctx context.Context, path string, limit int) ([]Record, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	members, err := s.client.ZRevRange(ctx, s.key(path), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("querying history %s: %w", path, err)
	}

	records := make([]Record, 0, len(members))
	for _, m := range members {
		var stored redisEntry
		if err := json.Unmarshal([]byte(m), &stored); err != nil {
			return nil, fmt.Errorf("decoding history %s: %w", path, err)
		}
		entry, err := decodeEntry(stored.Kind, stored.Value, stored.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("decoding history %s: %w", path, err)
		}
		records = append(records, Record{ID: stored.ID, Entry: entry})
	}
	return records, nil
}

func toRedisEntry(id string, e Entry) redisEntry {
	return redisEntry{
		ID:         id,
		Kind:       string(e.Value.Kind()),
		Value:      e.Value.String(),
		RecordedAt: e.Timestamp.UnixNano(),
	}
}
