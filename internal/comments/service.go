// Package comments is the append-only comment ledger.
package comments

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
	"go.uber.org/zap"
)

// CreatedAtNow is the display string given to comments created on this device.
const CreatedAtNow = "Just now"

var (
	errMissingStore   = errors.New("collection store is required")
	errMissingPostID  = errors.New("post identifier is required")
	errInvalidComment = errors.New("comment requires id, post, author and text")
	noOpLogger        = zap.NewNop()
)

const (
	opServiceNew = "comments.service.new"
	opAdd        = "comments.add"
	opForPost    = "comments.for_post"
)

// Comment is one entry of the comments collection. Timestamp is epoch milliseconds.
type Comment struct {
	ID        string         `json:"id"`
	PostID    string         `json:"postId"`
	User      users.Identity `json:"user"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Timestamp int64          `json:"timestamp"`
}

func (c Comment) valid() bool {
	return strings.TrimSpace(c.ID) != "" &&
		strings.TrimSpace(c.PostID) != "" &&
		c.User.Valid() &&
		strings.TrimSpace(c.Text) != ""
}

type Config struct {
	Store  storage.Store
	Logger *zap.Logger
}

type Service struct {
	comments *storage.Collection[Comment]
	logger   *zap.Logger
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
		comments: storage.NewCollection[Comment](cfg.Store, storage.KeyComments),
		logger:   logger,
	}, nil
}

// Add appends the comment to the ledger.
func (s *Service) Add(ctx context.Context, comment Comment) error {
	if !comment.valid() {
		return apperr.New(opAdd, "invalid_input", errInvalidComment)
	}
	_, err := s.comments.Update(ctx, func(existing []Comment) ([]Comment, error) {
		return append(existing, comment), nil
	})
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyComments, "write")
		s.logError(opAdd, "persist_failed", err,
			zap.String("comment_id", comment.ID),
			zap.String("post_id", comment.PostID))
		return apperr.New(opAdd, "persist_failed", err)
	}
	return nil
}

// ForPost returns the post's comments in storage order. Use SortNewestFirst for display.
func (s *Service) ForPost(ctx context.Context, postID string) ([]Comment, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperr.New(opForPost, "invalid_input", errMissingPostID)
	}
	all, _, err := s.comments.Load(ctx)
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyComments, "read")
		s.logError(opForPost, "load_failed", err, zap.String("post_id", postID))
		return nil, apperr.New(opForPost, "load_failed", err)
	}
	matching := make([]Comment, 0)
	for _, comment := range all {
		if comment.PostID == postID {
			matching = append(matching, comment)
		}
	}
	return matching, nil
}

// SortNewestFirst orders comments by descending timestamp, keeping ties in input order.
func SortNewestFirst(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Timestamp > comments[j].Timestamp
	})
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
	s.logger.Error("comments service error", attrs...)
}
