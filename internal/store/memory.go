package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/drewwilen/BetThat/internal/model"
)

// MemoryStore implements Store with in-memory slices and maps. Used for
// testing and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*model.Order
	trades      []model.Trade
	resolutions []model.Resolution
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*model.Order)}
}

func (s *MemoryStore) InsertOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}

	// Store a copy to avoid external mutation.
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return fmt.Errorf("order %s not found", o.ID)
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) InsertTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) TradesByMarket(_ context.Context, marketID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) TradesByAccount(_ context.Context, accountID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.BuyerID == accountID || t.CounterID == accountID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) InsertResolution(_ context.Context, r *model.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolutions = append(s.resolutions, *r)
	return nil
}

// Resolutions returns all recorded resolutions. Test helper.
func (s *MemoryStore) Resolutions() []model.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Resolution, len(s.resolutions))
	copy(out, s.resolutions)
	return out
}
