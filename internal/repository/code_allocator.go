package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeAllocator hands out the next ticket sequence number for a cafeteria-day.
// Allocation is serialized per cafeteria-day so concurrent creates never
// collide, and numbers are monotonically increasing within the day.
type CodeAllocator interface {
	Next(ctx context.Context, cafeteriaID string, date time.Time) (int64, error)
}

type redisCodeAllocator struct {
	client *redis.Client
}

// NewRedisCodeAllocator allocates codes with a Redis counter per
// cafeteria-day. Keys expire two days after last use.
func NewRedisCodeAllocator(client *redis.Client) CodeAllocator {
	return &redisCodeAllocator{client: client}
}

func (a *redisCodeAllocator) Next(ctx context.Context, cafeteriaID string, date time.Time) (int64, error) {
	key := codeKey(cafeteriaID, date)
	seq, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if seq == 1 {
		a.client.Expire(ctx, key, 48*time.Hour)
	}
	return seq, nil
}

func codeKey(cafeteriaID string, date time.Time) string {
	return fmt.Sprintf("turno:code:%s:%s", cafeteriaID, date.UTC().Format("20060102"))
}

type memoryCodeAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryCodeAllocator is the in-process fallback used when Redis is
// disabled.
func NewMemoryCodeAllocator() CodeAllocator {
	return &memoryCodeAllocator{counters: make(map[string]int64)}
}

func (a *memoryCodeAllocator) Next(ctx context.Context, cafeteriaID string, date time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := codeKey(cafeteriaID, date)
	a.counters[key]++
	return a.counters[key], nil
}
