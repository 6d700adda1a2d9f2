// Package activity runs the like, save and comment flows: ledger write, notification, change event.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/comments"
	"github.com/MarcoPoloResearchLab/tastelog/internal/notifications"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
	"go.uber.org/zap"
)

// Change event types published after a successful mutation.
const (
	EventInteractionsChanged  = "interactions-changed"
	EventCommentsChanged      = "comments-changed"
	EventNotificationsChanged = "notifications-changed"
)

const (
	opCoordinatorNew = "activity.coordinator.new"
	opLikePost       = "activity.like_post"
	opSavePost       = "activity.save_post"
	opCommentOnPost  = "activity.comment_on_post"
)

var (
	errMissingInteractions = errors.New("interaction ledger is required")
	errMissingComments     = errors.New("comment ledger is required")
	errMissingActor        = errors.New("actor identity is required")
	errMissingPostID       = errors.New("post identifier is required")
	errMissingText         = errors.New("comment text is required")
	noOpLogger             = zap.NewNop()
)

// InteractionLedger is the part of the interaction ledger the coordinator writes to.
type InteractionLedger interface {
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	ToggleSave(ctx context.Context, postID, userID string) (bool, error)
	LikeCount(ctx context.Context, postID string) (int, error)
}

// CommentLedger appends comments.
type CommentLedger interface {
	Add(ctx context.Context, comment comments.Comment) error
}

// NotificationDispatcher accepts notification events without blocking.
type NotificationDispatcher interface {
	Dispatch(event notifications.Event) bool
}

// Publisher fans change events out to listening screens.
type Publisher interface {
	PublishChange(eventType, postID string)
}

// PostRef is the post metadata supplied by the calling screen.
type PostRef struct {
	ID       string
	AuthorID string
	Title    string
}

type Config struct {
	Interactions InteractionLedger
	Comments     CommentLedger
	Dispatcher   NotificationDispatcher
	Publisher    Publisher
	IDProvider   IDProvider
	Clock        func() time.Time
	Logger       *zap.Logger
}

// Coordinator sequences a UI action through the ledgers and the notification generator.
type Coordinator struct {
	interactions InteractionLedger
	comments     CommentLedger
	dispatcher   NotificationDispatcher
	publisher    Publisher
	idProvider   IDProvider
	clock        func() time.Time
	logger       *zap.Logger
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Interactions == nil {
		return nil, apperr.New(opCoordinatorNew, "missing_interactions", errMissingInteractions)
	}
	if cfg.Comments == nil {
		return nil, apperr.New(opCoordinatorNew, "missing_comments", errMissingComments)
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Coordinator{
		interactions: cfg.Interactions,
		comments:     cfg.Comments,
		dispatcher:   cfg.Dispatcher,
		publisher:    cfg.Publisher,
		idProvider:   idProvider,
		clock:        clock,
		logger:       logger,
	}, nil
}

// LikePost toggles the actor's like. A new like on someone else's post raises a like notification.
func (c *Coordinator) LikePost(ctx context.Context, actor users.Identity, post PostRef) (bool, error) {
	actor, post, err := validate(opLikePost, actor, post)
	if err != nil {
		return false, err
	}
	liked, err := c.interactions.ToggleLike(ctx, post.ID, actor.ID)
	if err != nil {
		return false, err
	}
	c.publish(EventInteractionsChanged, post.ID)

	if liked && post.AuthorID != actor.ID {
		count, err := c.interactions.LikeCount(ctx, post.ID)
		if err != nil {
			// The like is stored; only the count on the notification is lost.
			c.logger.Warn("like count unavailable for notification",
				zap.String("operation", opLikePost),
				zap.String("post_id", post.ID),
				zap.Error(err))
			count = 0
		}
		c.dispatch(notifications.Event{
			Type:      notifications.TypeSocialLike,
			PostID:    post.ID,
			FromUser:  actor,
			PostTitle: post.Title,
			LikeCount: count,
		})
	}
	return liked, nil
}

// SavePost toggles the actor's save. Saves never notify.
func (c *Coordinator) SavePost(ctx context.Context, actor users.Identity, post PostRef) (bool, error) {
	actor, post, err := validate(opSavePost, actor, post)
	if err != nil {
		return false, err
	}
	saved, err := c.interactions.ToggleSave(ctx, post.ID, actor.ID)
	if err != nil {
		return false, err
	}
	c.publish(EventInteractionsChanged, post.ID)
	return saved, nil
}

// CommentOnPost stores a new comment and raises a comment notification on someone else's post.
func (c *Coordinator) CommentOnPost(ctx context.Context, actor users.Identity, post PostRef, text string) (comments.Comment, error) {
	actor, post, err := validate(opCommentOnPost, actor, post)
	if err != nil {
		return comments.Comment{}, err
	}
	if strings.TrimSpace(text) == "" {
		return comments.Comment{}, apperr.New(opCommentOnPost, "invalid_input", errMissingText)
	}
	id, err := c.idProvider.NewID()
	if err != nil {
		c.logger.Error("comment id generation failed",
			zap.String("operation", opCommentOnPost),
			zap.String("reason", "id_generation_failed"),
			zap.Error(err))
		return comments.Comment{}, apperr.New(opCommentOnPost, "id_generation_failed", err)
	}

	comment := comments.Comment{
		ID:        id,
		PostID:    post.ID,
		User:      actor,
		Text:      text,
		CreatedAt: comments.CreatedAtNow,
		Timestamp: c.clock().UnixMilli(),
	}
	if err := c.comments.Add(ctx, comment); err != nil {
		return comments.Comment{}, err
	}
	c.publish(EventCommentsChanged, post.ID)

	if post.AuthorID != actor.ID {
		c.dispatch(notifications.Event{
			Type:        notifications.TypeSocialComment,
			PostID:      post.ID,
			FromUser:    actor,
			PostTitle:   post.Title,
			CommentText: text,
		})
	}
	return comment, nil
}

func (c *Coordinator) dispatch(event notifications.Event) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(event)
}

func (c *Coordinator) publish(eventType, postID string) {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishChange(eventType, postID)
}

func validate(operation string, actor users.Identity, post PostRef) (users.Identity, PostRef, error) {
	if !actor.Valid() {
		return users.Identity{}, PostRef{}, apperr.New(operation, "invalid_input", errMissingActor)
	}
	actor.ID = strings.TrimSpace(actor.ID)
	actor.Username = strings.TrimSpace(actor.Username)
	post.ID = strings.TrimSpace(post.ID)
	post.AuthorID = strings.TrimSpace(post.AuthorID)
	if post.ID == "" {
		return users.Identity{}, PostRef{}, apperr.New(operation, "invalid_input", errMissingPostID)
	}
	return actor, post, nil
}
