package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"go.uber.org/zap"
)

const (
	opLoadAll        = "notifications.load_all"
	opMarkRead       = "notifications.mark_read"
	opMarkAllRead    = "notifications.mark_all_read"
	opMarkAllUnread  = "notifications.mark_all_unread"
	opClearAll       = "notifications.clear_all"
	opResetToSamples = "notifications.reset_to_samples"
	opUnreadCount    = "notifications.unread_count"

	inboxErrorMessage = "notification inbox error"
)

var errMissingNotificationID = errors.New("notification identifier is required")

// Inbox lists notifications and manages their read state.
type Inbox struct {
	notifications *storage.Collection[Notification]
	clock         func() time.Time
	logger        *zap.Logger
}

// LoadAll returns the stored notifications newest first. On first run the sample set is stored and returned.
func (i *Inbox) LoadAll(ctx context.Context) ([]Notification, error) {
	items, seeded, err := i.notifications.LoadOrSeed(ctx, func() []Notification {
		return Samples(i.clock())
	})
	if err != nil {
		metrics.ObservePersistenceFailure(storage.KeyNotifications, "read")
		logError(i.logger, inboxErrorMessage, opLoadAll, "load_failed", err)
		return nil, apperr.New(opLoadAll, "load_failed", err)
	}
	if seeded {
		i.logger.Info("seeded sample notifications", zap.Int("count", len(items)))
	}
	return items, nil
}

// MarkRead flags the notification as read and reports whether anything was written.
// Unknown or already read ids are left alone.
func (i *Inbox) MarkRead(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, apperr.New(opMarkRead, "invalid_input", errMissingNotificationID)
	}
	changed := false
	err := i.update(ctx, opMarkRead, func(items []Notification) ([]Notification, error) {
		changed = false
		for index := range items {
			if items[index].ID != id {
				continue
			}
			if items[index].IsRead {
				return nil, storage.ErrNoChange
			}
			items[index].IsRead = true
			changed = true
			return items, nil
		}
		return nil, storage.ErrNoChange
	}, zap.String("notification_id", id))
	if err != nil {
		return false, err
	}
	return changed, nil
}

// MarkAllRead flags every notification as read.
func (i *Inbox) MarkAllRead(ctx context.Context) error {
	return i.update(ctx, opMarkAllRead, setReadState(true))
}

// MarkAllUnread resets every notification to unread. Used by demo and reset flows only.
func (i *Inbox) MarkAllUnread(ctx context.Context) error {
	return i.update(ctx, opMarkAllUnread, setReadState(false))
}

// ClearAll stores an empty list. The samples are not re-seeded afterwards.
func (i *Inbox) ClearAll(ctx context.Context) error {
	if err := i.notifications.Replace(ctx, []Notification{}); err != nil {
		metrics.ObservePersistenceFailure(storage.KeyNotifications, "write")
		logError(i.logger, inboxErrorMessage, opClearAll, "persist_failed", err)
		return apperr.New(opClearAll, "persist_failed", err)
	}
	return nil
}

// ResetToSamples replaces the list with the sample set.
func (i *Inbox) ResetToSamples(ctx context.Context) error {
	if err := i.notifications.Replace(ctx, Samples(i.clock())); err != nil {
		metrics.ObservePersistenceFailure(storage.KeyNotifications, "write")
		logError(i.logger, inboxErrorMessage, opResetToSamples, "persist_failed", err)
		return apperr.New(opResetToSamples, "persist_failed", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications.
func (i *Inbox) UnreadCount(ctx context.Context) (int, error) {
	items, err := i.LoadAll(ctx)
	if err != nil {
		return 0, apperr.New(opUnreadCount, "load_failed", err)
	}
	return CountUnread(items), nil
}

// CountUnread counts the unread entries of items.
func CountUnread(items []Notification) int {
	unread := 0
	for _, item := range items {
		if !item.IsRead {
			unread++
		}
	}
	return unread
}

func (i *Inbox) update(ctx context.Context, operation string, mutate func([]Notification) ([]Notification, error), fields ...zap.Field) error {
	if _, err := i.notifications.Update(ctx, mutate); err != nil {
		metrics.ObservePersistenceFailure(storage.KeyNotifications, "write")
		logError(i.logger, inboxErrorMessage, operation, "persist_failed", err, fields...)
		return apperr.New(operation, "persist_failed", err)
	}
	return nil
}

func setReadState(read bool) func([]Notification) ([]Notification, error) {
	return func(items []Notification) ([]Notification, error) {
		changed := false
		for index := range items {
			if items[index].IsRead != read {
				items[index].IsRead = read
				changed = true
			}
		}
		if !changed {
			return nil, storage.ErrNoChange
		}
		return items, nil
	}
}
