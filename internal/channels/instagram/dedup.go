package instagram

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses repeated deliveries of the same comment. FirstSeen
// reports true the first time commentID is offered.
type Deduper interface {
	FirstSeen(ctx context.Context, commentID string) (bool, error)
}

// NoopDeduper lets every delivery through; Meta redeliveries produce repeat DMs.
type NoopDeduper struct{}

func (NoopDeduper) FirstSeen(context.Context, string) (bool, error) { return true, nil }

const commentKeyPrefix = "ig:comment:"

// RedisDeduper remembers comment ids in Redis for ttl.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper returns a Redis-backed deduper.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if client == nil {
		panic("instagram: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, commentID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, commentKeyPrefix+commentID, time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("instagram: redis setnx: %w", err)
	}
	return ok, nil
}

// ProcessedMarker is satisfied by events.ProcessedStore.
type ProcessedMarker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// ProviderComments is the processed_events provider for comment ids.
const ProviderComments = "instagram_comment"

// StoreDeduper records comment ids in the processed_events table.
type StoreDeduper struct {
	store ProcessedMarker
}

func NewStoreDeduper(store ProcessedMarker) *StoreDeduper {
	if store == nil {
		panic("instagram: processed store required")
	}
	return &StoreDeduper{store: store}
}

func (d *StoreDeduper) FirstSeen(ctx context.Context, commentID string) (bool, error) {
	return d.store.MarkProcessed(ctx, ProviderComments, commentID)
}
