package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	queryCollectionKey         = "collection_key = ?"
	queryCollectionKeyRevision = "collection_key = ? AND revision = ?"
)

// CollectionRecord stores one keyed collection as a JSON document.
type CollectionRecord struct {
	Key              string `gorm:"column:collection_key;primaryKey;size:190;not null"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	Revision         int64  `gorm:"column:revision;not null;default:0"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (CollectionRecord) TableName() string {
	return "collections"
}

// CollectionStore implements storage.Store on top of a gorm connection.
type CollectionStore struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewCollectionStore wraps an opened database. A nil clock defaults to time.Now.
func NewCollectionStore(db *gorm.DB, clock func() time.Time) *CollectionStore {
	if clock == nil {
		clock = time.Now
	}
	return &CollectionStore{db: db, clock: clock}
}

func (s *CollectionStore) Read(ctx context.Context, key string) (storage.Record, error) {
	if key == "" {
		return storage.Record{}, storage.ErrInvalidKey
	}
	var record CollectionRecord
	err := s.db.WithContext(ctx).Where(queryCollectionKey, key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, err
	}
	return storage.Record{Payload: []byte(record.PayloadJSON), Revision: record.Revision}, nil
}

func (s *CollectionStore) Write(ctx context.Context, key string, payload []byte, expectedRevision int64) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidKey
	}
	updatedAt := s.clock().UTC().Unix()
	nextRevision := expectedRevision + 1

	if expectedRevision == 0 {
		record := CollectionRecord{
			Key:              key,
			PayloadJSON:      string(payload),
			Revision:         nextRevision,
			UpdatedAtSeconds: updatedAt,
		}
		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 0 {
			return 0, fmt.Errorf("%w: key %s already exists", storage.ErrRevisionConflict, key)
		}
		return nextRevision, nil
	}

	result := s.db.WithContext(ctx).
		Model(&CollectionRecord{}).
		Where(queryCollectionKeyRevision, key, expectedRevision).
		Updates(map[string]any{
			"payload_json": string(payload),
			"revision":     nextRevision,
			"updated_at_s": updatedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: key %s is not at revision %d", storage.ErrRevisionConflict, key, expectedRevision)
	}
	return nextRevision, nil
}

// Close releases the underlying connection pool.
func (s *CollectionStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
