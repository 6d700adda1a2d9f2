package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
	"go.uber.org/zap"
)

const (
	opCreate = "notifications.create"

	commentPreviewRunes = 50
	titleLike           = "New Like!"
	titleComment        = "New Comment!"
)

var (
	errMissingPostID   = errors.New("post identifier is required")
	errMissingFromUser = errors.New("acting user is required")
)

// Event is a social action that may produce a notification for the owning user.
type Event struct {
	Type        Type
	PostID      string
	FromUser    users.Identity
	PostTitle   string
	CommentText string
	// LikeCount is attached to like notifications when positive.
	LikeCount int
}

// Generator turns like and comment events into persisted notifications.
type Generator struct {
	notifications *storage.Collection[Notification]
	ownerID       string
	clock         func() time.Time
	logger        *zap.Logger

	mu        sync.Mutex
	lastStamp int64
}

// OwnerID returns the id of the user whose inbox receives the notifications.
func (g *Generator) OwnerID() string {
	return g.ownerID
}

// Create prepends a notification for event and caps the stored list.
// Events from the owning user produce nothing and report false.
func (g *Generator) Create(ctx context.Context, event Event) (Notification, bool, error) {
	if event.Type != TypeSocialLike && event.Type != TypeSocialComment {
		return Notification{}, false, apperr.New(opCreate, "unsupported_type",
			fmt.Errorf("%w: %q", ErrUnsupportedType, event.Type))
	}
	fromID := strings.TrimSpace(event.FromUser.ID)
	if fromID == g.ownerID {
		metrics.ObserveNotificationSuppressed("self")
		return Notification{}, false, nil
	}
	if !event.FromUser.Valid() {
		return Notification{}, false, apperr.New(opCreate, "invalid_input", errMissingFromUser)
	}
	postID := strings.TrimSpace(event.PostID)
	if postID == "" {
		return Notification{}, false, apperr.New(opCreate, "invalid_input", errMissingPostID)
	}

	var created Notification
	_, err := g.notifications.Update(ctx, func(existing []Notification) ([]Notification, error) {
		created = g.build(event, postID, g.nextStamp(existing))
		next := make([]Notification, 0, len(existing)+1)
		next = append(next, created)
		next = append(next, existing...)
		if len(next) > MaxRetained {
			next = next[:MaxRetained]
		}
		return next, nil
	})
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyNotifications, "write")
		logError(g.logger, "notification generator error", opCreate, "persist_failed", err,
			zap.String("type", string(event.Type)),
			zap.String("post_id", postID),
			zap.String("from_user_id", fromID))
		return Notification{}, false, apperr.New(opCreate, "persist_failed", err)
	}
	metrics.ObserveNotificationGenerated(string(event.Type))
	return created, true, nil
}

func (g *Generator) build(event Event, postID string, stamp time.Time) Notification {
	from := event.FromUser
	from.ID = strings.TrimSpace(from.ID)
	if from.DisplayName == "" {
		from.DisplayName = from.Username
	}

	notification := Notification{
		ID:          fmt.Sprintf("%s%d", event.Type, stamp.UnixMilli()),
		Type:        event.Type,
		Timestamp:   FormatTimestamp(stamp),
		ActionType:  ActionViewPost,
		PostID:      postID,
		PostName:    event.PostTitle,
		FromUser:    &from,
		CommentText: event.CommentText,
	}
	switch event.Type {
	case TypeSocialLike:
		notification.Title = titleLike
		notification.Description = fmt.Sprintf("@%s liked your %s post", from.Username, event.PostTitle)
		if event.LikeCount > 0 {
			count := event.LikeCount
			notification.LikeCount = &count
		}
	case TypeSocialComment:
		notification.Title = titleComment
		notification.Description = Preview(event.CommentText)
	}
	return notification
}

// nextStamp returns a millisecond stamp later than any the generator issued and later than the current head.
func (g *Generator) nextStamp(existing []Notification) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.clock().UTC().UnixMilli()
	if stamp <= g.lastStamp {
		stamp = g.lastStamp + 1
	}
	if len(existing) > 0 {
		if head, ok := existing[0].Time(); ok && stamp <= head.UnixMilli() {
			stamp = head.UnixMilli() + 1
		}
	}
	g.lastStamp = stamp
	return time.UnixMilli(stamp).UTC()
}

// Preview shortens comment text to 50 characters, appending "..." when it was longer.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= commentPreviewRunes {
		return text
	}
	return string(runes[:commentPreviewRunes]) + "..."
}
