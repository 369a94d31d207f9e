package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	key     string
	value   []byte
	expires time.Time
	element *list.Element
}

// MemoryStore is an in-process Store for development and tests. LRU by
// key count, byte usage tracked for the eviction policy.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*memEntry
	order    *list.List
	bytes    int64
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 4096
	}
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*memEntry, capacity),
		order:    list.New(),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !ent.expires.IsZero() && time.Now().After(ent.expires) {
		s.removeEntry(ent)
		return nil, false, nil
	}
	s.order.MoveToFront(ent.element)
	return ent.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := time.Time{}
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	if ent, ok := s.items[key]; ok {
		s.bytes += int64(len(value) - len(ent.value))
		ent.value = value
		ent.expires = expires
		s.order.MoveToFront(ent.element)
		return nil
	}

	if len(s.items) >= s.capacity {
		s.evictOldest()
	}

	elem := s.order.PushFront(key)
	s.items[key] = &memEntry{key: key, value: value, expires: expires, element: elem}
	s.bytes += int64(len(value))
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string, maxFraction float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*memEntry
	for k, ent := range s.items {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, ent)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	limit := len(matched)
	if maxFraction > 0 && maxFraction < 1 {
		limit = int(float64(len(matched)) * maxFraction)
		if limit == 0 {
			limit = 1
		}
	}
	for _, ent := range matched[:limit] {
		s.removeEntry(ent)
	}
	return limit, nil
}

func (s *MemoryStore) UsedBytes(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes, nil
}

func (s *MemoryStore) evictOldest() {
	elem := s.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := s.items[elem.Value.(string)]; ok {
		s.removeEntry(ent)
	}
}

func (s *MemoryStore) removeEntry(ent *memEntry) {
	if ent.element != nil {
		s.order.Remove(ent.element)
	}
	s.bytes -= int64(len(ent.value))
	delete(s.items, ent.key)
}
