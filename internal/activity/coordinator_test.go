package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/comments"
	"github.com/MarcoPoloResearchLab/tastelog/internal/interactions"
	"github.com/MarcoPoloResearchLab/tastelog/internal/notifications"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage/storagetest"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
)

var (
	me    = users.Identity{ID: "current_user", Username: "you", DisplayName: "You"}
	kenji = users.Identity{ID: "user_kenji", Username: "kenji_eats", DisplayName: "Kenji Sato"}
	now   = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (d *recordingDispatcher) Dispatch(event notifications.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return true
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishChange(eventType, postID string) {
	p.events = append(p.events, eventType+":"+postID)
}

type staticIDs struct {
	id  string
	err error
}

func (s staticIDs) NewID() (string, error) {
	return s.id, s.err
}

type fixture struct {
	coordinator  *Coordinator
	interactions *interactions.Service
	comments     *comments.Service
	dispatcher   *recordingDispatcher
	publisher    *recordingPublisher
	store        *storagetest.FaultyStore
}

func newFixture(t *testing.T, ids IDProvider) fixture {
	t.Helper()
	store := storagetest.NewFaultyStore(storage.NewMemoryStore())
	clock := func() time.Time { return now }
	ledger, err := interactions.NewService(interactions.Config{Store: store, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create interactions: %v", err)
	}
	commentLedger, err := comments.NewService(comments.Config{Store: store})
	if err != nil {
		t.Fatalf("failed to create comments: %v", err)
	}
	dispatcher := &recordingDispatcher{}
	publisher := &recordingPublisher{}
	coordinator, err := NewCoordinator(Config{
		Interactions: ledger,
		Comments:     commentLedger,
		Dispatcher:   dispatcher,
		Publisher:    publisher,
		IDProvider:   ids,
		Clock:        clock,
	})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	return fixture{
		coordinator:  coordinator,
		interactions: ledger,
		comments:     commentLedger,
		dispatcher:   dispatcher,
		publisher:    publisher,
		store:        store,
	}
}

func TestNewCoordinatorRequiresLedgers(t *testing.T) {
	if _, err := NewCoordinator(Config{}); apperr.Code(err) != "activity.coordinator.new.missing_interactions" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLikePostNotifiesAuthorOnlyOnLike(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	post := PostRef{ID: "post_1", AuthorID: me.ID, Title: "Spicy Miso Ramen"}

	liked, err := f.coordinator.LikePost(ctx, kenji, post)
	if err != nil || !liked {
		t.Fatalf("LikePost: liked=%v err=%v", liked, err)
	}
	if len(f.dispatcher.events) != 1 {
		t.Fatalf("expected one notification event, got %d", len(f.dispatcher.events))
	}
	event := f.dispatcher.events[0]
	if event.Type != notifications.TypeSocialLike || event.FromUser.ID != kenji.ID || event.PostTitle != post.Title || event.LikeCount != 1 {
		t.Fatalf("unexpected event %#v", event)
	}

	liked, err = f.coordinator.LikePost(ctx, kenji, post)
	if err != nil || liked {
		t.Fatalf("unlike: liked=%v err=%v", liked, err)
	}
	if len(f.dispatcher.events) != 1 {
		t.Fatalf("unlike must not notify, got %d events", len(f.dispatcher.events))
	}
	if len(f.publisher.events) != 2 || f.publisher.events[0] != EventInteractionsChanged+":post_1" {
		t.Fatalf("unexpected change events %v", f.publisher.events)
	}
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.coordinator.LikePost(context.Background(), me, PostRef{ID: "post_1", AuthorID: " current_user "}); err != nil {
		t.Fatalf("LikePost failed: %v", err)
	}
	if len(f.dispatcher.events) != 0 {
		t.Fatalf("own post must not notify, got %#v", f.dispatcher.events)
	}
}

func TestSavePostNeverNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	saved, err := f.coordinator.SavePost(ctx, kenji, PostRef{ID: "post_1", AuthorID: me.ID})
	if err != nil || !saved {
		t.Fatalf("SavePost: saved=%v err=%v", saved, err)
	}
	if len(f.dispatcher.events) != 0 {
		t.Fatalf("save must not notify")
	}
	if ok, _ := f.interactions.IsSaved(ctx, "post_1", kenji.ID); !ok {
		t.Fatalf("expected post to be saved")
	}
}

func TestCommentOnPostStoresAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, staticIDs{id: "comment-1"})

	comment, err := f.coordinator.CommentOnPost(ctx, kenji, PostRef{ID: "post_1", AuthorID: me.ID, Title: "Ramen"}, "Broth recipe please!")
	if err != nil {
		t.Fatalf("CommentOnPost failed: %v", err)
	}
	if comment.ID != "comment-1" || comment.CreatedAt != comments.CreatedAtNow || comment.Timestamp != now.UnixMilli() {
		t.Fatalf("unexpected comment %#v", comment)
	}
	stored, err := f.comments.ForPost(ctx, "post_1")
	if err != nil || len(stored) != 1 || stored[0].User.ID != kenji.ID {
		t.Fatalf("expected stored comment, got %#v err=%v", stored, err)
	}
	if len(f.dispatcher.events) != 1 || f.dispatcher.events[0].CommentText != "Broth recipe please!" {
		t.Fatalf("expected comment event, got %#v", f.dispatcher.events)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0] != EventCommentsChanged+":post_1" {
		t.Fatalf("unexpected change events %v", f.publisher.events)
	}
}

func TestCommentOnPostGeneratesUUIDv7ByDefault(t *testing.T) {
	f := newFixture(t, nil)
	comment, err := f.coordinator.CommentOnPost(context.Background(), me, PostRef{ID: "post_1", AuthorID: me.ID}, "Mine")
	if err != nil {
		t.Fatalf("CommentOnPost failed: %v", err)
	}
	if len(comment.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", comment.ID)
	}
	if len(f.dispatcher.events) != 0 {
		t.Fatalf("commenting on own post must not notify")
	}
}

func TestCommentOnPostFailures(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, staticIDs{err: errors.New("entropy exhausted")})
	if _, err := f.coordinator.CommentOnPost(ctx, kenji, PostRef{ID: "post_1"}, "hi"); apperr.Code(err) != "activity.comment_on_post.id_generation_failed" {
		t.Fatalf("expected id_generation_failed, got %v", err)
	}

	f = newFixture(t, staticIDs{id: "c1"})
	if _, err := f.coordinator.CommentOnPost(ctx, kenji, PostRef{ID: "post_1"}, "  "); !apperr.HasReason(err, "invalid_input") {
		t.Fatalf("expected invalid_input, got %v", err)
	}

	f.store.FailWrites(true)
	_, err := f.coordinator.CommentOnPost(ctx, kenji, PostRef{ID: "post_1"}, "hi")
	if apperr.Code(err) != "comments.add.persist_failed" {
		t.Fatalf("expected persist_failed, got %v", err)
	}
	if len(f.dispatcher.events) != 0 || len(f.publisher.events) != 0 {
		t.Fatalf("failed comment must not notify or publish")
	}
}

func TestLikePostRejectsInvalidActor(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.coordinator.LikePost(context.Background(), users.Identity{ID: "x"}, PostRef{ID: "post_1"}); !apperr.HasReason(err, "invalid_input") {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}
