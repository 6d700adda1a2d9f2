// Package interactions records likes and saves keyed by (post, user).
package interactions

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"go.uber.org/zap"
)

var (
	errMissingStore  = errors.New("collection store is required")
	errMissingPostID = errors.New("post identifier is required")
	errMissingUserID = errors.New("user identifier is required")
	noOpLogger       = zap.NewNop()
)

const (
	opServiceNew   = "interactions.service.new"
	opToggleLike   = "interactions.toggle_like"
	opToggleSave   = "interactions.toggle_save"
	opIsLiked      = "interactions.is_liked"
	opIsSaved      = "interactions.is_saved"
	opLikesForPost = "interactions.likes_for_post"
	opSavedPostIDs = "interactions.saved_post_ids"
	opSummarize    = "interactions.summarize"
)

// Config wires a Service.
type Config struct {
	Store  storage.Store
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service is the interaction ledger. Each mutation rewrites the whole collection.
type Service struct {
	likes  *storage.Collection[LikeRecord]
	saves  *storage.Collection[SaveRecord]
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, apperr.New(opServiceNew, "missing_store", errMissingStore)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		likes:  storage.NewCollection[LikeRecord](cfg.Store, storage.KeyLikedPosts),
		saves:  storage.NewCollection[SaveRecord](cfg.Store, storage.KeySavedPosts),
		clock:  clock,
		logger: logger,
	}, nil
}

// ToggleLike removes the user's like of the post, or records one. It returns the new state.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := s.toggle(ctx, opToggleLike, s.likes, postID, userID)
	if err != nil {
		return false, err
	}
	metrics.ObserveToggle("like", liked)
	return liked, nil
}

// ToggleSave has the same contract as ToggleLike on the saved collection.
func (s *Service) ToggleSave(ctx context.Context, postID, userID string) (bool, error) {
	saved, err := s.toggle(ctx, opToggleSave, s.saves, postID, userID)
	if err != nil {
		return false, err
	}
	metrics.ObserveToggle("save", saved)
	return saved, nil
}

func (s *Service) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	return s.exists(ctx, opIsLiked, s.likes, postID, userID)
}

func (s *Service) IsSaved(ctx context.Context, postID, userID string) (bool, error) {
	return s.exists(ctx, opIsSaved, s.saves, postID, userID)
}

// LikesForPost returns every like of the post in storage order.
func (s *Service) LikesForPost(ctx context.Context, postID string) ([]LikeRecord, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperr.New(opLikesForPost, "invalid_input", errMissingPostID)
	}
	records, err := s.load(ctx, opLikesForPost, s.likes)
	if err != nil {
		return nil, err
	}
	likes := make([]LikeRecord, 0, len(records))
	for _, record := range records {
		if record.PostID == postID {
			likes = append(likes, record)
		}
	}
	return likes, nil
}

// LikeCount returns the number of likes recorded for the post.
func (s *Service) LikeCount(ctx context.Context, postID string) (int, error) {
	likes, err := s.LikesForPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	return len(likes), nil
}

// SavedPostIDs returns the posts saved by the user, most recently saved first.
func (s *Service) SavedPostIDs(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.New(opSavedPostIDs, "invalid_input", errMissingUserID)
	}
	records, err := s.load(ctx, opSavedPostIDs, s.saves)
	if err != nil {
		return nil, err
	}
	saved := make([]SaveRecord, 0, len(records))
	for _, record := range records {
		if record.UserID == userID {
			saved = append(saved, record)
		}
	}
	sort.SliceStable(saved, func(i, j int) bool {
		return saved[i].Timestamp > saved[j].Timestamp
	})
	ids := make([]string, 0, len(saved))
	for _, record := range saved {
		ids = append(ids, record.PostID)
	}
	return ids, nil
}

// Summary is one viewer's like and save state across every post, built from a single read of each collection.
type Summary struct {
	liked  map[string]struct{}
	saved  map[string]struct{}
	counts map[string]int
}

func (s Summary) IsLiked(postID string) bool {
	_, ok := s.liked[postID]
	return ok
}

func (s Summary) IsSaved(postID string) bool {
	_, ok := s.saved[postID]
	return ok
}

// LikeCount returns the number of likes of the post from any user.
func (s Summary) LikeCount(postID string) int {
	return s.counts[postID]
}

// Summarize loads both collections once and indexes them for userID.
func (s *Service) Summarize(ctx context.Context, userID string) (Summary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Summary{}, apperr.New(opSummarize, "invalid_input", errMissingUserID)
	}
	likes, err := s.load(ctx, opSummarize, s.likes)
	if err != nil {
		return Summary{}, err
	}
	saves, err := s.load(ctx, opSummarize, s.saves)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		liked:  make(map[string]struct{}),
		saved:  make(map[string]struct{}),
		counts: make(map[string]int),
	}
	for _, record := range likes {
		summary.counts[record.PostID]++
		if record.UserID == userID {
			summary.liked[record.PostID] = struct{}{}
		}
	}
	for _, record := range saves {
		if record.UserID == userID {
			summary.saved[record.PostID] = struct{}{}
		}
	}
	return summary, nil
}

func (s *Service) toggle(ctx context.Context, operation string, collection *storage.Collection[Record], postID, userID string) (bool, error) {
	postID, userID, err := validatePair(operation, postID, userID)
	if err != nil {
		return false, err
	}

	var active bool
	_, err = collection.Update(ctx, func(records []Record) ([]Record, error) {
		for index, record := range records {
			if record.matches(postID, userID) {
				active = false
				return append(records[:index:index], records[index+1:]...), nil
			}
		}
		active = true
		return append(records, Record{
			PostID:    postID,
			UserID:    userID,
			Timestamp: s.clock().UnixMilli(),
		}), nil
	})
	if err != nil {
		metrics.ObservePersistenceFailure(collection.Key(), "write")
		s.logError(operation, "persist_failed", err,
			zap.String("post_id", postID),
			zap.String("user_id", userID))
		return false, apperr.New(operation, "persist_failed", err)
	}
	return active, nil
}

func (s *Service) exists(ctx context.Context, operation string, collection *storage.Collection[Record], postID, userID string) (bool, error) {
	postID, userID, err := validatePair(operation, postID, userID)
	if err != nil {
		return false, err
	}
	records, err := s.load(ctx, operation, collection)
	if err != nil {
		return false, err
	}
	for _, record := range records {
		if record.matches(postID, userID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) load(ctx context.Context, operation string, collection *storage.Collection[Record]) ([]Record, error) {
	records, _, err := collection.Load(ctx)
	if err != nil {
		metrics.ObservePersistenceFailure(collection.Key(), "read")
		s.logError(operation, "load_failed", err)
		return nil, apperr.New(operation, "load_failed", err)
	}
	return records, nil
}

func validatePair(operation, postID, userID string) (string, string, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return "", "", apperr.New(operation, "invalid_input", errMissingPostID)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", apperr.New(operation, "invalid_input", errMissingUserID)
	}
	return postID, userID, nil
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
	s.logger.Error("interactions service error", attrs...)
}
