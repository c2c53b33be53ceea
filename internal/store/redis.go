package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drewwilen/BetThat/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for trade-history queries. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	if err := s.primary.InsertTrade(ctx, t); err != nil {
		return err
	}
	// Invalidate history caches touched by this trade; next read re-populates.
	s.rdb.Del(ctx, marketTradesKey(t.MarketID),
		accountTradesKey(t.BuyerID), accountTradesKey(t.CounterID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) TradesByMarket(ctx context.Context, marketID string) ([]model.Trade, error) {
	return s.cachedTrades(ctx, marketTradesKey(marketID), func() ([]model.Trade, error) {
		return s.primary.TradesByMarket(ctx, marketID)
	})
}

func (s *CachedStore) TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	return s.cachedTrades(ctx, accountTradesKey(accountID), func() ([]model.Trade, error) {
		return s.primary.TradesByAccount(ctx, accountID)
	})
}

func (s *CachedStore) cachedTrades(ctx context.Context, cacheKey string, load func() ([]model.Trade, error)) ([]model.Trade, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	// Cache miss: read from primary.
	trades, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, cacheKey, data, s.ttl)
	}
	return trades, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InsertOrder(ctx context.Context, o *model.Order) error {
	return s.primary.InsertOrder(ctx, o)
}

func (s *CachedStore) UpdateOrder(ctx context.Context, o *model.Order) error {
	return s.primary.UpdateOrder(ctx, o)
}

func (s *CachedStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, id)
}

func (s *CachedStore) InsertResolution(ctx context.Context, r *model.Resolution) error {
	return s.primary.InsertResolution(ctx, r)
}

func marketTradesKey(id string) string   { return fmt.Sprintf("trades:market:%s", id) }
func accountTradesKey(id string) string  { return fmt.Sprintf("trades:account:%s", id) }
