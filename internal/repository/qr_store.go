package repository

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// QRStore keeps the rotating per-cafeteria QR code students scan to request a
// ticket. A code lives for the configured TTL; requesting the current code
// while a valid one exists returns it unchanged.
type QRStore interface {
	// Current returns the live code for the cafeteria, minting a fresh one if
	// none exists or the previous code expired.
	Current(ctx context.Context, cafeteriaID string, ttl time.Duration) (string, error)
	// Validate reports whether code is the cafeteria's live code.
	Validate(ctx context.Context, cafeteriaID, code string) (bool, error)
}

func generateQRCode() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func qrKey(cafeteriaID string) string {
	return "turno:qr:" + cafeteriaID
}

type redisQRStore struct {
	client *redis.Client
}

// NewRedisQRStore stores QR codes in Redis with their TTL.
func NewRedisQRStore(client *redis.Client) QRStore {
	return &redisQRStore{client: client}
}

func (s *redisQRStore) Current(ctx context.Context, cafeteriaID string, ttl time.Duration) (string, error) {
	key := qrKey(cafeteriaID)
	code := generateQRCode()
	// SET NX keeps an unexpired code in place; losing the race means another
	// caller minted the code first and GET returns it.
	ok, err := s.client.SetNX(ctx, key, code, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ok {
		return code, nil
	}
	existing, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.Current(ctx, cafeteriaID, ttl)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return existing, nil
}

func (s *redisQRStore) Validate(ctx context.Context, cafeteriaID, code string) (bool, error) {
	existing, err := s.client.Get(ctx, qrKey(cafeteriaID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return existing == code, nil
}

type memoryQREntry struct {
	code      string
	expiresAt time.Time
}

type memoryQRStore struct {
	mu    sync.Mutex
	codes map[string]memoryQREntry
}

// NewMemoryQRStore is the in-process fallback used when Redis is disabled.
func NewMemoryQRStore() QRStore {
	return &memoryQRStore{codes: make(map[string]memoryQREntry)}
}

func (s *memoryQRStore) Current(ctx context.Context, cafeteriaID string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if entry, ok := s.codes[cafeteriaID]; ok && entry.expiresAt.After(now) {
		return entry.code, nil
	}
	code := generateQRCode()
	s.codes[cafeteriaID] = memoryQREntry{code: code, expiresAt: now.Add(ttl)}
	return code, nil
}

func (s *memoryQRStore) Validate(ctx context.Context, cafeteriaID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[cafeteriaID]
	if !ok || !entry.expiresAt.After(time.Now()) {
		return false, nil
	}
	return entry.code == code, nil
}
