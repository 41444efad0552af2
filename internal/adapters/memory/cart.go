package memory

import (
	"sync"

	"github.com/robertarktes/table-reservations/internal/domain"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[int]domain.CartEntry
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[int]domain.CartEntry)}
}

// PreviewCost prices a single table and overwrites the user's cart with it.
func (s *CartStore) PreviewCost(userID int, table domain.Table) domain.CartEntry {
	entry := domain.CartEntry{
		TableID:    table.ID,
		TablePrice: table.Price,
		TotalPrice: table.Price,
	}

	s.mu.Lock()
	s.carts[userID] = entry
	s.mu.Unlock()
	return entry
}

func (s *CartStore) GetCart(userID int) (domain.CartEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.carts[userID]
	return entry, ok
}

func (s *CartStore) ClearCart(userID int) {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
}
