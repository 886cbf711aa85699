// Package cache keeps memoized mastery snapshots in Redis or a
// Redis-compatible server such as Dragonfly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/skilltrace/internal/store"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "skilltrace:mastery:"

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Cache is a snapshot store over a Redis client. Entries expire after the
// TTL; a missing entry only costs a replay.
type Cache struct {
	Client *redis.Client
	ttl    time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errors.New("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the server at url and pings it.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{Client: client, ttl: ttl}
}

// Close shuts down the client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Key returns the key holding a learner's snapshot.
func Key(learnerID string) string {
	return KeyPrefix + learnerID
}

// entry is the stored JSON form of a snapshot.
type entry struct {
	LearnerID string             `json:"learnerId"`
	Sequence  int64              `json:"sequence"`
	Watermark int64              `json:"watermarkMicros"`
	CreatedAt int64              `json:"createdAtMicros"`
	Data      store.SnapshotData `json:"data"`
}

func encode(snap *store.Snapshot) ([]byte, error) {
	return json.Marshal(entry{
		LearnerID: snap.LearnerID,
		Sequence:  snap.Sequence,
		Watermark: snap.Watermark.UnixMicro(),
		CreatedAt: snap.CreatedAt.UnixMicro(),
		Data:      snap.Data,
	})
}

func decode(b []byte) (*store.Snapshot, error) {
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &store.Snapshot{
		LearnerID: e.LearnerID,
		Sequence:  e.Sequence,
		Watermark: time.UnixMicro(e.Watermark).UTC(),
		CreatedAt: time.UnixMicro(e.CreatedAt).UTC(),
		Data:      e.Data,
	}, nil
}

// Save stores the snapshot, replacing any previous one and resetting the TTL.
func (c *Cache) Save(ctx context.Context, snap *store.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	b, err := encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.Client.Set(ctx, Key(snap.LearnerID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the learner's snapshot, or nil if there is none.
func (c *Cache) Latest(ctx context.Context, learnerID string) (*store.Snapshot, error) {
	b, err := c.Client.Get(ctx, Key(learnerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the learner's snapshot.
func (c *Cache) Delete(ctx context.Context, learnerID string) error {
	if err := c.Client.Del(ctx, Key(learnerID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
