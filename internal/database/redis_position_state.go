// Redis-based position state persistence. Open position snapshots are kept
// in Redis so a restart can recover them without replaying the event log.
// When Redis is unavailable the store falls back to an in-memory cache so
// trading continues without interruption.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-sniper-bot/internal/positions"
)

const (
	// positionKeyPrefix is the prefix for position state keys.
	// Format: sniper:position:{mint}
	positionKeyPrefix = "sniper:position"

	// positionStateTTL keeps snapshots well past any max-hold window
	positionStateTTL = 48 * time.Hour
)

// RedisPositionStore persists position snapshots in Redis with an in-memory
// fallback. Implements positions.StateStore.
type RedisPositionStore struct {
	client         *redis.Client
	fallback       map[string]*positions.Position
	fallbackMu     sync.RWMutex
	redisAvailable atomic.Bool
}

// NewRedisPositionStore creates the store and probes the connection
func NewRedisPositionStore(addr, password string, db int) *RedisPositionStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	store := &RedisPositionStore{
		client:   client,
		fallback: make(map[string]*positions.Position),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Unavailable at startup, using in-memory fallback: %v", err)
		store.redisAvailable.Store(false)
	} else {
		log.Printf("[REDIS] Connected to %s", addr)
		store.redisAvailable.Store(true)
	}
	return store
}

func positionKey(mint string) string {
	return fmt.Sprintf("%s:%s", positionKeyPrefix, mint)
}

// SavePosition writes a snapshot. Redis errors degrade to the fallback
// cache, never to a hard failure.
func (s *RedisPositionStore) SavePosition(ctx context.Context, p *positions.Position) error {
	snapshot := *p

	s.fallbackMu.Lock()
	s.fallback[p.Mint] = &snapshot
	s.fallbackMu.Unlock()

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshaling position %s: %w", p.Mint, err)
	}

	if err := s.client.Set(ctx, positionKey(p.Mint), data, positionStateTTL).Err(); err != nil {
		if s.redisAvailable.Swap(false) {
			log.Printf("[REDIS] Write failed, degrading to in-memory fallback: %v", err)
		}
		return nil
	}
	s.redisAvailable.Store(true)
	return nil
}

// DeletePosition removes a snapshot after the position closes
func (s *RedisPositionStore) DeletePosition(ctx context.Context, mint string) error {
	s.fallbackMu.Lock()
	delete(s.fallback, mint)
	s.fallbackMu.Unlock()

	if err := s.client.Del(ctx, positionKey(mint)).Err(); err != nil {
		if s.redisAvailable.Swap(false) {
			log.Printf("[REDIS] Delete failed, degrading to in-memory fallback: %v", err)
		}
	}
	return nil
}

// LoadOpenPositions scans for persisted snapshots, for restart recovery.
// Falls back to the in-memory cache when Redis is unreachable.
func (s *RedisPositionStore) LoadOpenPositions(ctx context.Context) ([]*positions.Position, error) {
	var out []*positions.Position

	iter := s.client.Scan(ctx, 0, positionKeyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return s.loadFromFallback(), nil
		}
		var p positions.Position
		if err := json.Unmarshal(data, &p); err != nil {
			log.Printf("[REDIS] Skipping corrupt snapshot at %s: %v", iter.Val(), err)
			continue
		}
		if p.Status == positions.StatusOpen {
			out = append(out, &p)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[REDIS] Scan failed, recovering from in-memory fallback: %v", err)
		return s.loadFromFallback(), nil
	}
	return out, nil
}

func (s *RedisPositionStore) loadFromFallback() []*positions.Position {
	s.fallbackMu.RLock()
	defer s.fallbackMu.RUnlock()
	out := make([]*positions.Position, 0, len(s.fallback))
	for _, p := range s.fallback {
		if p.Status == positions.StatusOpen {
			snapshot := *p
			out = append(out, &snapshot)
		}
	}
	return out
}

// Close releases the Redis client
func (s *RedisPositionStore) Close() error {
	return s.client.Close()
}
