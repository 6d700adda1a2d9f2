package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

const maxWriteAttempts = 3

// ErrNoChange may be returned by an Update mutation to skip the write.
var ErrNoChange = errors.New("storage: no change")

// Collection owns one key and serializes every read-modify-write against it.
//
// Reads decode a fresh copy of the stored JSON array, so callers never share state with the store.
// Writes are retried on revision conflicts caused by writers outside this process.
type Collection[T any] struct {
	store Store
	key   string
	mu    sync.Mutex
}

// NewCollection binds a typed collection to a store key.
func NewCollection[T any](store Store, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

// Key returns the storage key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load returns the stored items and whether the key has ever been written.
func (c *Collection[T]) Load(ctx context.Context) ([]T, bool, error) {
	items, _, found, err := c.read(ctx)
	return items, found, err
}

// Update applies mutate to the current items and writes the result back as one unit.
// Returning ErrNoChange from mutate leaves the stored collection untouched.
func (c *Collection[T]) Update(ctx context.Context, mutate func(items []T) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastConflict error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		items, revision, _, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		next, err := mutate(items)
		if errors.Is(err, ErrNoChange) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		if err := c.write(ctx, next, revision); err != nil {
			if errors.Is(err, ErrRevisionConflict) {
				lastConflict = err
				continue
			}
			return nil, err
		}
		return next, nil
	}
	return nil, fmt.Errorf("storage: write %s gave up after %d attempts: %w", c.key, maxWriteAttempts, lastConflict)
}

// LoadOrSeed returns the stored items, or writes and returns seed() when the key has never been written.
// The second result reports whether the seed was written.
func (c *Collection[T]) LoadOrSeed(ctx context.Context, seed func() []T) ([]T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastConflict error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		items, _, found, err := c.read(ctx)
		if err != nil {
			return nil, false, err
		}
		if found {
			return items, false, nil
		}
		seeded := seed()
		if err := c.write(ctx, seeded, 0); err != nil {
			if errors.Is(err, ErrRevisionConflict) {
				lastConflict = err
				continue
			}
			return nil, false, err
		}
		if seeded == nil {
			seeded = []T{}
		}
		return seeded, true, nil
	}
	return nil, false, fmt.Errorf("storage: seed %s gave up after %d attempts: %w", c.key, maxWriteAttempts, lastConflict)
}

// Replace overwrites the collection, ignoring whatever is stored, including undecodable payloads.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastConflict error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		revision, err := c.revision(ctx)
		if err != nil {
			return err
		}
		err = c.write(ctx, items, revision)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRevisionConflict) {
			return err
		}
		lastConflict = err
	}
	return fmt.Errorf("storage: replace %s gave up after %d attempts: %w", c.key, maxWriteAttempts, lastConflict)
}

func (c *Collection[T]) read(ctx context.Context) ([]T, int64, bool, error) {
	record, err := c.store.Read(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("storage: read %s: %w", c.key, err)
	}
	items := []T{}
	if len(record.Payload) > 0 {
		if err := json.Unmarshal(record.Payload, &items); err != nil {
			return nil, 0, true, fmt.Errorf("storage: decode %s: %w", c.key, err)
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, record.Revision, true, nil
}

func (c *Collection[T]) revision(ctx context.Context) (int64, error) {
	record, err := c.store.Read(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: read %s: %w", c.key, err)
	}
	return record.Revision, nil
}

func (c *Collection[T]) write(ctx context.Context, items []T, revision int64) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", c.key, err)
	}
	if _, err := c.store.Write(ctx, c.key, payload, revision); err != nil {
		return fmt.Errorf("storage: write %s: %w", c.key, err)
	}
	return nil
}
