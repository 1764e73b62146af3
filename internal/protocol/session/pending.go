package session

import (
	"sort"
	"sync"
	"time"
)

// PendingCommand tracks one request written but not yet answered.
type PendingCommand struct {
	ID        uint64
	Path      string
	WrittenAt time.Time
	Awaiting  bool
}

// PendingSet stores in-flight commands by correlation id.
type PendingSet struct {
	mu    sync.RWMutex
	items map[uint64]PendingCommand
}

func NewPendingSet() *PendingSet {
	return &PendingSet{items: make(map[uint64]PendingCommand)}
}

func (s *PendingSet) Add(item PendingCommand) {
	if item.ID == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// MarkAwaiting flags id as having a caller blocked on it.
func (s *PendingSet) MarkAwaiting(id uint64) (PendingCommand, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return PendingCommand{}, false
	}
	item.Awaiting = true
	s.items[id] = item
	return item, true
}

func (s *PendingSet) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *PendingSet) Get(id uint64) (PendingCommand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// List returns pending commands ordered by id.
func (s *PendingSet) List() []PendingCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PendingCommand, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
