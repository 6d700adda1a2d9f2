// Package storagetest provides Store doubles for exercising persistence failures.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
)

// ErrInjected is the failure returned by a FaultyStore.
var ErrInjected = errors.New("storagetest: injected failure")

// FaultyStore wraps a Store and fails reads or writes on demand.
type FaultyStore struct {
	inner storage.Store

	mu         sync.Mutex
	failReads  bool
	failWrites bool
	reads      int
	writes     int
}

// NewFaultyStore wraps inner, or a fresh MemoryStore when inner is nil.
func NewFaultyStore(inner storage.Store) *FaultyStore {
	if inner == nil {
		inner = storage.NewMemoryStore()
	}
	return &FaultyStore{inner: inner}
}

// FailReads toggles read failures.
func (s *FaultyStore) FailReads(fail bool) {
	s.mu.Lock()
	s.failReads = fail
	s.mu.Unlock()
}

// FailWrites toggles write failures.
func (s *FaultyStore) FailWrites(fail bool) {
	s.mu.Lock()
	s.failWrites = fail
	s.mu.Unlock()
}

// Reads reports how many reads reached the wrapped store.
func (s *FaultyStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Writes reports how many writes reached the wrapped store.
func (s *FaultyStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FaultyStore) Read(ctx context.Context, key string) (storage.Record, error) {
	s.mu.Lock()
	fail := s.failReads
	if !fail {
		s.reads++
	}
	s.mu.Unlock()
	if fail {
		return storage.Record{}, ErrInjected
	}
	return s.inner.Read(ctx, key)
}

func (s *FaultyStore) Write(ctx context.Context, key string, payload []byte, expectedRevision int64) (int64, error) {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return 0, ErrInjected
	}
	revision, err := s.inner.Write(ctx, key, payload, expectedRevision)
	if err == nil {
		s.mu.Lock()
		s.writes++
		s.mu.Unlock()
	}
	return revision, err
}

func (s *FaultyStore) Close() error {
	return s.inner.Close()
}
