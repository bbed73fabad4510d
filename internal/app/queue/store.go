// Package queue provides the FIFO of pending play requests.
package queue

import (
	"sync"

	"github.com/osa030/castbox/internal/domain/track"
)

// Store is a thread-safe FIFO of queue items.
// No operation performs I/O.
type Store struct {
	mu    sync.Mutex
	items []track.Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make([]track.Item, 0)}
}

// Add appends an item and returns the new queue length.
func (s *Store) Add(item track.Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	return len(s.items)
}

// PopFront removes and returns the oldest item.
func (s *Store) PopFront() (track.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return track.Item{}, false
	}
	item := s.items[0]
	s.items[0] = track.Item{}
	s.items = s.items[1:]
	return item, true
}

// List returns a copy of the queued items.
func (s *Store) List() []track.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]track.Item, len(s.items))
	copy(result, s.items)
	return result
}

// Clear removes all items and returns them.
func (s *Store) Clear() []track.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.items
	s.items = make([]track.Item, 0)
	return removed
}

// Len returns the number of queued items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
