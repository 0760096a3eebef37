package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NiftyPulse/internal/domain/models"
	"NiftyPulse/internal/domain/repository"
	pkgcache "NiftyPulse/pkg/cache"
)

// liveQuoteTTL keeps stale session snapshots from lingering past the day.
const liveQuoteTTL = 24 * time.Hour

// RedisLiveQuoteStore keeps the latest quote per symbol in Redis so every
// process sees the same session snapshot.
type RedisLiveQuoteStore struct {
	cache pkgcache.Service
}

// NewRedisLiveQuoteStore creates the live quote store.
func NewRedisLiveQuoteStore(cache pkgcache.Service) repository.LiveQuoteStore {
	return &RedisLiveQuoteStore{cache: cache}
}

func (s *RedisLiveQuoteStore) Upsert(ctx context.Context, q models.LiveQuote) error {
	if q.Symbol == "" {
		return fmt.Errorf("quote has no symbol")
	}
	return s.cache.Set(ctx, liveKey(q.Symbol), q, liveQuoteTTL)
}

func (s *RedisLiveQuoteStore) Get(ctx context.Context, symbol string) (models.LiveQuote, error) {
	var q models.LiveQuote
	err := s.cache.Get(ctx, liveKey(symbol), &q)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return models.LiveQuote{}, fmt.Errorf("no live quote for %s", symbol)
		}
		return models.LiveQuote{}, err
	}
	return q, nil
}

func (s *RedisLiveQuoteStore) Close() error {
	return nil // redis client is owned by pkg/cache
}

func liveKey(symbol string) string {
	return pkgcache.GenerateKey("live", symbol)
}
