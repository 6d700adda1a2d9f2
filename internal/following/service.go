// Package following keeps the set of user ids the local user follows.
package following

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"go.uber.org/zap"
)

var (
	errMissingStore  = errors.New("collection store is required")
	errMissingUserID = errors.New("user identifier is required")
	noOpLogger       = zap.NewNop()
)

const (
	opServiceNew = "following.service.new"
	opLoad       = "following.load"
	opToggle     = "following.toggle"
	opSet        = "following.set"
)

// Set is a lookup view over followed user ids.
type Set map[string]struct{}

// NewSet builds a Set from ids, ignoring blanks.
func NewSet(ids ...string) Set {
	set := make(Set, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id is followed.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

type Config struct {
	Store  storage.Store
	Logger *zap.Logger
}

type Service struct {
	users  *storage.Collection[string]
	logger *zap.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, apperr.New(opServiceNew, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		users:  storage.NewCollection[string](cfg.Store, storage.KeyFollowingUsers),
		logger: logger,
	}, nil
}

// Load returns the followed ids in stored order.
func (s *Service) Load(ctx context.Context) ([]string, error) {
	ids, _, err := s.users.Load(ctx)
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyFollowingUsers, "read")
		s.logError(opLoad, "load_failed", err)
		return nil, apperr.New(opLoad, "load_failed", err)
	}
	return ids, nil
}

// LoadSet returns the followed ids as a Set.
func (s *Service) LoadSet(ctx context.Context) (Set, error) {
	ids, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewSet(ids...), nil
}

// IsFollowing reports whether userID is followed.
func (s *Service) IsFollowing(ctx context.Context, userID string) (bool, error) {
	set, err := s.LoadSet(ctx)
	if err != nil {
		return false, err
	}
	return set.Contains(strings.TrimSpace(userID)), nil
}

// Toggle follows or unfollows userID and returns the new state.
func (s *Service) Toggle(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, apperr.New(opToggle, "invalid_input", errMissingUserID)
	}
	var followed bool
	_, err := s.users.Update(ctx, func(ids []string) ([]string, error) {
		for index, id := range ids {
			if id == userID {
				followed = false
				return append(ids[:index:index], ids[index+1:]...), nil
			}
		}
		followed = true
		return append(ids, userID), nil
	})
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyFollowingUsers, "write")
		s.logError(opToggle, "persist_failed", err, zap.String("user_id", userID))
		return false, apperr.New(opToggle, "persist_failed", err)
	}
	return followed, nil
}

// Set replaces the followed ids, dropping blanks and duplicates.
func (s *Service) Set(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	if err := s.users.Replace(ctx, cleaned); err != nil {
		metrics.ObservePersistenceFailure(storage.KeyFollowingUsers, "write")
		s.logError(opSet, "persist_failed", err)
		return apperr.New(opSet, "persist_failed", err)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("following service error", attrs...)
}
