package notifications

import (
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedType indicates an event type without a generator path.
	ErrUnsupportedType = errors.New("notifications: unsupported notification type")

	errMissingStore   = errors.New("collection store is required")
	errMissingOwnerID = errors.New("owning user identifier is required")
	noOpLogger        = zap.NewNop()
)

const opServiceNew = "notifications.service.new"

// Config wires the generator and the inbox to one notifications collection.
type Config struct {
	Store   storage.Store
	OwnerID string
	Clock   func() time.Time
	Logger  *zap.Logger
}

// New returns a Generator and an Inbox sharing the same collection owner, so their writes are serialized.
func New(cfg Config) (*Generator, *Inbox, error) {
	if cfg.Store == nil {
		return nil, nil, apperr.New(opServiceNew, "missing_store", errMissingStore)
	}
	ownerID := strings.TrimSpace(cfg.OwnerID)
	if ownerID == "" {
		return nil, nil, apperr.New(opServiceNew, "missing_owner_id", errMissingOwnerID)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	collection := storage.NewCollection[Notification](cfg.Store, storage.KeyNotifications)
	generator := &Generator{
		notifications: collection,
		ownerID:       ownerID,
		clock:         clock,
		logger:        logger,
	}
	inbox := &Inbox{
		notifications: collection,
		clock:         clock,
		logger:        logger,
	}
	return generator, inbox, nil
}

func logError(logger *zap.Logger, message, operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger.Error(message, attrs...)
}
