// Package badgerstore keeps the social collections in an embedded BadgerDB.
//
// Each collection key maps to one value: an 8-byte big-endian revision followed by the JSON payload.
package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	keyPrefix      = "collection/"
	revisionLength = 8
)

var errCorruptValue = errors.New("badgerstore: stored value shorter than revision header")

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// GCInterval runs value-log GC periodically when positive.
	GCInterval time.Duration
	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
	Logger         *zap.Logger
}

// DefaultConfig returns the on-device configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration without disk persistence.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type zapAdapter struct {
	logger *zap.SugaredLogger
}

func (a *zapAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Errorf(format, args...)
}

func (a *zapAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warnf(format, args...)
}

func (a *zapAdapter) Infof(format string, args ...interface{}) {
	a.logger.Infof(format, args...)
}

func (a *zapAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debugf(format, args...)
}

// Store implements storage.Store on BadgerDB.
type Store struct {
	db       *badger.DB
	gcRunner *gcRunner
}

// Open opens (creating if needed) a Badger store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapAdapter{logger: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	store := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		store.gcRunner = newGCRunner(db, cfg.GCInterval, ratio, cfg.Logger)
		store.gcRunner.start()
	}
	return store, nil
}

func (s *Store) Read(ctx context.Context, key string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	if key == "" {
		return storage.Record{}, storage.ErrInvalidKey
	}
	var record storage.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			decoded, decodeErr := decodeValue(value)
			if decodeErr != nil {
				return decodeErr
			}
			record = decoded
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, err
	}
	return record, nil
}

func (s *Store) Write(ctx context.Context, key string, payload []byte, expectedRevision int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, storage.ErrInvalidKey
	}
	nextRevision := expectedRevision + 1
	err := s.db.Update(func(txn *badger.Txn) error {
		current := int64(0)
		item, err := txn.Get(storeKey(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(value []byte) error {
				decoded, decodeErr := decodeValue(value)
				if decodeErr != nil {
					return decodeErr
				}
				current = decoded.Revision
				return nil
			}); err != nil {
				return err
			}
		}
		if current != expectedRevision {
			return fmt.Errorf("%w: key %s at %d, expected %d", storage.ErrRevisionConflict, key, current, expectedRevision)
		}
		return txn.Set(storeKey(key), encodeValue(nextRevision, payload))
	})
	if errors.Is(err, badger.ErrConflict) {
		return 0, fmt.Errorf("%w: key %s: %v", storage.ErrRevisionConflict, key, err)
	}
	if err != nil {
		return 0, err
	}
	return nextRevision, nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gcRunner != nil {
		s.gcRunner.stop()
	}
	return s.db.Close()
}

func storeKey(key string) []byte {
	return []byte(keyPrefix + key)
}

func encodeValue(revision int64, payload []byte) []byte {
	value := make([]byte, revisionLength+len(payload))
	binary.BigEndian.PutUint64(value[:revisionLength], uint64(revision))
	copy(value[revisionLength:], payload)
	return value
}

func decodeValue(value []byte) (storage.Record, error) {
	if len(value) < revisionLength {
		return storage.Record{}, errCorruptValue
	}
	revision := int64(binary.BigEndian.Uint64(value[:revisionLength]))
	payload := append([]byte(nil), value[revisionLength:]...)
	return storage.Record{Payload: payload, Revision: revision}, nil
}
