package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a Store kept entirely in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Read(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if key == "" {
		return Record{}, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{Payload: append([]byte(nil), record.Payload...), Revision: record.Revision}, nil
}

func (s *MemoryStore) Write(ctx context.Context, key string, payload []byte, expectedRevision int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.records[key]
	if current.Revision != expectedRevision {
		return 0, fmt.Errorf("%w: key %s at %d, expected %d", ErrRevisionConflict, key, current.Revision, expectedRevision)
	}
	next := current.Revision + 1
	s.records[key] = Record{Payload: append([]byte(nil), payload...), Revision: next}
	return next, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
