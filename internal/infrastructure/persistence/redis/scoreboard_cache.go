package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codearena/scoring-engine/internal/application/query"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCOREBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ScoreboardCache implements query.ScoreboardCache with Redis. It stores
// assembled scoreboard DTOs as JSON under keys produced by the query layer;
// the freeze phase is part of the key, so a phase transition never serves
// a stale board.
//
// Redis is an accelerator here, never the source of truth. A circuit
// breaker guards every operation: when Redis degrades, Get reports a miss
// and the query layer assembles the board from PostgreSQL instead of
// stalling on a broken connection.
type ScoreboardCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
}

// NewScoreboardCache creates a scoreboard cache with the default TTL.
func NewScoreboardCache(cache *Cache) *ScoreboardCache {
	return NewScoreboardCacheWithTTL(cache, TTLScoreboard)
}

// NewScoreboardCacheWithTTL creates a scoreboard cache with a custom TTL.
func NewScoreboardCacheWithTTL(cache *Cache, ttl time.Duration) *ScoreboardCache {
	if ttl <= 0 {
		ttl = TTLScoreboard
	}

	breaker := circuitbreaker.CacheBreaker(nil)

	return &ScoreboardCache{cache: cache, breaker: breaker, ttl: ttl}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *ScoreboardCache) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Get returns the cached scoreboard or shared.ErrNotFound. An open breaker
// reports a miss: the caller falls through to the database.
func (c *ScoreboardCache) Get(ctx context.Context, key string) (*query.ScoreboardDTO, error) {
	var sb query.ScoreboardDTO
	var miss bool
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := c.cache.Get(ctx, key, &sb); err != nil {
			// A miss is a normal outcome, not a Redis failure
			if errors.Is(err, ErrCacheMiss) {
				miss = true
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("scoreboard cache get %q: %w", key, err)
	}
	if miss {
		return nil, shared.ErrNotFound
	}

	return &sb, nil
}

// Set stores an assembled scoreboard under the given key.
func (c *ScoreboardCache) Set(ctx context.Context, key string, sb *query.ScoreboardDTO) error {
	if sb == nil {
		return ErrCacheNilValue
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, key, sb, c.ttl)
	})
	if err != nil {
		return fmt.Errorf("scoreboard cache set %q: %w", key, err)
	}

	return nil
}

// InvalidateContest drops every cached scoreboard of a contest, whatever
// phase it was assembled in.
func (c *ScoreboardCache) InvalidateContest(ctx context.Context, contestID shared.ContestID) error {
	pattern := PrefixScoreboard + contestID.String() + ":*"
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.DeleteByPattern(ctx, pattern)
	})
	if err != nil {
		return fmt.Errorf("scoreboard cache invalidate contest %d: %w", contestID, err)
	}

	return nil
}
