package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/activity"
	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/comments"
	"github.com/MarcoPoloResearchLab/tastelog/internal/feed"
	"github.com/MarcoPoloResearchLab/tastelog/internal/following"
	"github.com/MarcoPoloResearchLab/tastelog/internal/interactions"
	"github.com/MarcoPoloResearchLab/tastelog/internal/notifications"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const heartbeatInterval = 25 * time.Second

var (
	errMissingActivity     = errors.New("activity coordinator dependency required")
	errMissingInteractions = errors.New("interactions service dependency required")
	errMissingComments     = errors.New("comments service dependency required")
	errMissingFollowing    = errors.New("following service dependency required")
	errMissingInbox        = errors.New("notification inbox dependency required")
	errMissingDirectory    = errors.New("user directory dependency required")
)

type Dependencies struct {
	Activity     *activity.Coordinator
	Interactions *interactions.Service
	Comments     *comments.Service
	Following    *following.Service
	Inbox        *notifications.Inbox
	Catalog      *feed.Catalog
	Directory    *users.Directory
	Realtime     *RealtimeDispatcher
	// AllowedOrigins lists the browser origins that may call the API. "*" allows any origin;
	// an empty list refuses every cross-origin request.
	AllowedOrigins []string
	Clock          func() time.Time
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.Activity == nil:
		return nil, errMissingActivity
	case deps.Interactions == nil:
		return nil, errMissingInteractions
	case deps.Comments == nil:
		return nil, errMissingComments
	case deps.Following == nil:
		return nil, errMissingFollowing
	case deps.Inbox == nil:
		return nil, errMissingInbox
	case deps.Directory == nil:
		return nil, errMissingDirectory
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = feed.NewCatalog(nil)
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(requireJSONBody())

	handler := &httpHandler{
		activity:     deps.Activity,
		interactions: deps.Interactions,
		comments:     deps.Comments,
		following:    deps.Following,
		inbox:        deps.Inbox,
		catalog:      catalog,
		directory:    deps.Directory,
		realtime:     realtime,
		clock:        clock,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/events", handler.handleEvents)

	router.GET("/feed", handler.handleFeed)
	router.GET("/following", handler.handleListFollowing)
	router.PUT("/following", handler.handleReplaceFollowing)
	router.GET("/users/:user_id/follow", handler.handleFollowState)
	router.POST("/users/:user_id/follow", handler.handleFollow)
	router.GET("/users/:user_id/saved", handler.handleSaved)

	posts := router.Group("/posts/:post_id")
	posts.POST("/like", handler.handleLike)
	posts.POST("/save", handler.handleSave)
	posts.GET("/likes", handler.handleLikes)
	posts.GET("/comments", handler.handleListComments)
	posts.POST("/comments", handler.handleAddComment)

	router.GET("/notifications", handler.handleListNotifications)
	router.GET("/notifications/unread-count", handler.handleUnreadCount)
	router.DELETE("/notifications", handler.handleClearNotifications)
	router.POST("/notifications/read-all", handler.handleMarkAllRead)
	router.POST("/notifications/reset", handler.handleResetNotifications)
	router.POST("/notifications/:notification_id/read", handler.handleMarkRead)

	return router, nil
}

// corsMiddleware answers 403 to requests from origins outside allowedOrigins.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	switch {
	case slices.Contains(allowedOrigins, "*"):
		config.AllowAllOrigins = true
	case len(allowedOrigins) == 0:
		config.AllowOriginFunc = func(string) bool { return false }
	default:
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

// requireJSONBody rejects mutating requests that are not declared as JSON, so a cross-site
// form or text/plain post cannot reach a handler without a CORS preflight.
func requireJSONBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}
		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported_media_type",
				"code":  "server.request.unsupported_media_type",
			})
			return
		}
		c.Next()
	}
}

type httpHandler struct {
	activity     *activity.Coordinator
	interactions *interactions.Service
	comments     *comments.Service
	following    *following.Service
	inbox        *notifications.Inbox
	catalog      *feed.Catalog
	directory    *users.Directory
	realtime     *RealtimeDispatcher
	clock        func() time.Time
	logger       *zap.Logger
}

// postActionPayload carries what the calling screen knows about the post and, for demo flows, the acting user.
type postActionPayload struct {
	AuthorID string          `json:"authorId"`
	Title    string          `json:"title"`
	Actor    *users.Identity `json:"actor"`
	Text     string          `json:"text"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleLike(c *gin.Context) {
	payload, ok := h.bindPostAction(c)
	if !ok {
		return
	}
	liked, err := h.activity.LikePost(c.Request.Context(), h.resolveActor(payload), h.resolvePost(c.Param("post_id"), payload))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (h *httpHandler) handleSave(c *gin.Context) {
	payload, ok := h.bindPostAction(c)
	if !ok {
		return
	}
	saved, err := h.activity.SavePost(c.Request.Context(), h.resolveActor(payload), h.resolvePost(c.Param("post_id"), payload))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

func (h *httpHandler) handleLikes(c *gin.Context) {
	likes, err := h.interactions.LikesForPost(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes, "count": len(likes)})
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	found, err := h.comments.ForPost(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	comments.SortNewestFirst(found)
	c.JSON(http.StatusOK, gin.H{"comments": found})
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	payload, ok := h.bindPostAction(c)
	if !ok {
		return
	}
	comment, err := h.activity.CommentOnPost(c.Request.Context(), h.resolveActor(payload), h.resolvePost(c.Param("post_id"), payload), payload.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *httpHandler) handleFeed(c *gin.Context) {
	ctx := c.Request.Context()
	tab := strings.TrimSpace(c.DefaultQuery("tab", feed.TabForYou))

	followed, err := h.following.LoadSet(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	posts, err := feed.Assemble(tab, followed, h.catalog.Posts())
	if err != nil {
		h.writeError(c, err)
		return
	}
	entries, err := feed.Decorate(ctx, h.interactions, posts, h.directory.CurrentUserID())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tab": tab, "entries": entries})
}

func (h *httpHandler) handleFollow(c *gin.Context) {
	userID := c.Param("user_id")
	followed, err := h.following.Toggle(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.realtime.PublishChange(RealtimeEventFollowingChanged, "")
	c.JSON(http.StatusOK, gin.H{"following": followed})
}

func (h *httpHandler) handleFollowState(c *gin.Context) {
	followed, err := h.following.IsFollowing(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": followed})
}

type followingPayload struct {
	UserIDs []string `json:"userIds"`
}

func (h *httpHandler) handleListFollowing(c *gin.Context) {
	ids, err := h.following.Load(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, followingPayload{UserIDs: ids})
}

func (h *httpHandler) handleReplaceFollowing(c *gin.Context) {
	var payload followingPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.UserIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "code": "server.bind.invalid_request"})
		return
	}
	if err := h.following.Set(c.Request.Context(), payload.UserIDs); err != nil {
		h.writeError(c, err)
		return
	}
	h.realtime.PublishChange(RealtimeEventFollowingChanged, "")
	c.Status(http.StatusNoContent)
}

// handleSaved lists the user's saved posts for the favorites screen, most recently saved first.
// Ids missing from the catalog are still listed in postIds.
func (h *httpHandler) handleSaved(c *gin.Context) {
	ids, err := h.interactions.SavedPostIDs(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	posts := make([]feed.Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := h.catalog.Lookup(id); ok {
			posts = append(posts, post)
		}
	}
	c.JSON(http.StatusOK, gin.H{"postIds": ids, "posts": posts})
}

func (h *httpHandler) handleUnreadCount(c *gin.Context) {
	count, err := h.inbox.UnreadCount(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	items, err := h.inbox.LoadAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"buckets":     notifications.BucketByRecency(items, h.clock()),
		"unreadCount": notifications.CountUnread(items),
		"total":       len(items),
	})
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	id := c.Param("notification_id")
	changed, err := h.inbox.MarkRead(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if changed {
		h.realtime.Publish(RealtimeMessage{EventType: RealtimeEventNotificationsChanged, NotificationID: id})
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMarkAllRead(c *gin.Context) {
	h.inboxCommand(c, h.inbox.MarkAllRead)
}

func (h *httpHandler) handleClearNotifications(c *gin.Context) {
	h.inboxCommand(c, h.inbox.ClearAll)
}

func (h *httpHandler) handleResetNotifications(c *gin.Context) {
	h.inboxCommand(c, h.inbox.ResetToSamples)
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	c.SSEvent(realtimeEventReady, RealtimeMessage{EventType: realtimeEventReady, Source: realtimeSource, Timestamp: h.clock().UTC()})
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, message)
			return true
		case <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, RealtimeMessage{EventType: realtimeEventHeartbeat, Source: realtimeSource, Timestamp: h.clock().UTC()})
			return true
		}
	})
}

func (h *httpHandler) inboxCommand(c *gin.Context, command func(ctx context.Context) error) {
	if err := command(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.realtime.PublishChange(RealtimeEventNotificationsChanged, "")
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) bindPostAction(c *gin.Context) (postActionPayload, bool) {
	var payload postActionPayload
	if c.Request.ContentLength == 0 {
		return payload, true
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "code": "server.bind.invalid_request"})
		return postActionPayload{}, false
	}
	return payload, true
}

// resolveActor returns the acting user: the supplied actor for demo flows, otherwise the local user.
func (h *httpHandler) resolveActor(payload postActionPayload) users.Identity {
	if payload.Actor == nil || !payload.Actor.Valid() {
		return h.directory.Current()
	}
	if known, ok := h.directory.Lookup(payload.Actor.ID); ok {
		return known
	}
	if err := h.directory.Remember(*payload.Actor); err != nil {
		h.logger.Warn("ignoring actor identity", zap.Error(err))
		return h.directory.Current()
	}
	actor, ok := h.directory.Lookup(payload.Actor.ID)
	if !ok {
		return h.directory.Current()
	}
	return actor
}

// resolvePost fills author and title from the catalog when the screen did not send them.
func (h *httpHandler) resolvePost(postID string, payload postActionPayload) activity.PostRef {
	post := activity.PostRef{ID: postID, AuthorID: payload.AuthorID, Title: payload.Title}
	if known, ok := h.catalog.Lookup(postID); ok {
		if strings.TrimSpace(post.AuthorID) == "" {
			post.AuthorID = known.AuthorID
		}
		if strings.TrimSpace(post.Title) == "" {
			post.Title = known.Title
		}
	}
	return post
}

func (h *httpHandler) writeError(c *gin.Context, err error) {
	code := apperr.Code(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, feed.ErrUnknownTab):
		status = http.StatusBadRequest
		code = "feed.assemble.unknown_tab"
	case apperr.HasReason(err, "invalid_input"):
		status = http.StatusBadRequest
	}
	if code == "" {
		code = "server.internal_error"
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	reason := code
	if index := strings.LastIndex(code, "."); index >= 0 {
		reason = code[index+1:]
	}
	c.JSON(status, gin.H{"error": reason, "code": code})
}
