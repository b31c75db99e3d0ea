// Package dedup suppresses repeat availability alerts for the same
// product within a TTL window.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stocksentry:alert:"

// Suppressor answers "has this alert fired recently". Redis makes the
// window survive restarts and span replicas; without Redis, or when it
// errors, an in-process expiring LRU takes over so alerts still
// deduplicate within one process lifetime.
type Suppressor struct {
	client *redis.Client
	local  *expirable.LRU[string, struct{}]
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration) *Suppressor {
	return &Suppressor{
		client: client,
		local:  expirable.NewLRU[string, struct{}](1024, nil, ttl),
		ttl:    ttl,
		logger: slog.Default().With("component", "dedup"),
	}
}

// ShouldAlert returns true the first time a key is seen inside the TTL
// window and false for repeats.
func (s *Suppressor) ShouldAlert(ctx context.Context, key string) bool {
	if s.client != nil {
		fresh, err := s.client.SetNX(ctx, keyPrefix+key, 1, s.ttl).Result()
		if err == nil {
			return fresh
		}
		s.logger.Warn("redis unavailable, using in-process dedup", "error", err)
	}

	if _, seen := s.local.Get(key); seen {
		return false
	}
	s.local.Add(key, struct{}{})
	return true
}

// Release gives back a key claimed by ShouldAlert, reopening the
// window immediately. Callers use it when the alert was claimed but
// never delivered, so the next run retries instead of staying silent
// for the whole TTL.
func (s *Suppressor) Release(ctx context.Context, key string) {
	if s.client != nil {
		if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
			s.logger.Warn("failed to release alert key", "key", key, "error", err)
		}
	}
	s.local.Remove(key)
}
