package world

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// Store is a concurrent id -> entity map.
//
// Every mutation happens under one mutex. Clear also advances an epoch; an
// Upsert reads the epoch before it waits for the lock and gives up if a Clear
// finished in the meantime, so a packet decoded for the old zone cannot
// repopulate a store that was just emptied for the new one.
type Store[T Entity] struct {
	mu      sync.RWMutex
	entries map[int64]T
	epoch   atomic.Uint64
}

// NewStore creates an empty store.
func NewStore[T Entity]() *Store[T] {
	return &Store[T]{entries: make(map[int64]T)}
}

// Upsert replaces any entry under id with e. It returns false when the write was
// discarded because a Clear raced with it.
func (s *Store[T]) Upsert(id int64, e T) bool {
	return s.upsertAt(s.epoch.Load(), id, e)
}

func (s *Store[T]) upsertAt(epoch uint64, id int64, e T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch.Load() != epoch {
		return false
	}
	delete(s.entries, id)
	s.entries[id] = e
	return true
}

// Modify runs fn on the entry under id, or on the zero value with ok false when
// id is absent, and stores the result when fn returns true. The read and the
// write happen under one lock, so a concurrent Remove or Upsert for id is
// ordered entirely before or after. Like Upsert, it gives up when a Clear
// finished while it waited for the lock.
func (s *Store[T]) Modify(id int64, fn func(cur T, ok bool) (T, bool)) (T, bool) {
	epoch := s.epoch.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.epoch.Load() != epoch {
		return zero, false
	}
	cur, ok := s.entries[id]
	next, keep := fn(cur, ok)
	if !keep {
		return zero, false
	}
	s.entries[id] = next
	return next, true
}

// Update is Modify restricted to ids already present: absent ids stay absent.
func (s *Store[T]) Update(id int64, fn func(T) (T, bool)) (T, bool) {
	return s.Modify(id, func(cur T, ok bool) (T, bool) {
		if !ok {
			return cur, false
		}
		return fn(cur)
	})
}

// Remove deletes id and reports whether it was present.
func (s *Store[T]) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// RemoveWhere deletes every entry matching fn and returns how many went.
func (s *Store[T]) RemoveWhere(fn func(T) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if fn(e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Clear empties the store.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[int64]T)
	s.epoch.Add(1)
}

// Get returns the entry under id.
func (s *Store[T]) Get(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Snapshot returns a copy of all entries ordered by id.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	out := make([]T, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(a.EntityID(), b.EntityID())
	})
	return out
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
