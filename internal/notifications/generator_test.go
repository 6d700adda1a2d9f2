package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage/storagetest"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
)

const ownerID = "current_user"

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func mustNew(t *testing.T, store storage.Store, clock func() time.Time) (*Generator, *Inbox) {
	t.Helper()
	if clock == nil {
		clock = func() time.Time { return fixedNow }
	}
	generator, inbox, err := New(Config{Store: store, OwnerID: ownerID, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create notifications: %v", err)
	}
	return generator, inbox
}

func mustLoadStored(t *testing.T, store storage.Store) []Notification {
	t.Helper()
	items, _, err := storage.NewCollection[Notification](store, storage.KeyNotifications).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load stored notifications: %v", err)
	}
	return items
}

func likeEvent(fromID string) Event {
	return Event{
		Type:      TypeSocialLike,
		PostID:    "post-1",
		FromUser:  users.Identity{ID: fromID, Username: fromID + "_name"},
		PostTitle: "Pad Thai",
		LikeCount: 3,
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, _, err := New(Config{OwnerID: ownerID}); apperr.Code(err) != "notifications.service.new.missing_store" {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := New(Config{Store: storage.NewMemoryStore()}); apperr.Code(err) != "notifications.service.new.missing_owner_id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateLikeNotification(t *testing.T) {
	store := storage.NewMemoryStore()
	generator, _ := mustNew(t, store, nil)

	notification, created, err := generator.Create(context.Background(), likeEvent("user_kenji"))
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	if notification.ID != fmt.Sprintf("social_like%d", fixedNow.UnixMilli()) {
		t.Fatalf("unexpected id %q", notification.ID)
	}
	if notification.Title != "New Like!" {
		t.Fatalf("unexpected title %q", notification.Title)
	}
	if notification.Description != "@user_kenji_name liked your Pad Thai post" {
		t.Fatalf("unexpected description %q", notification.Description)
	}
	if notification.Timestamp != "2026-10-18T09:30:00.000Z" {
		t.Fatalf("unexpected timestamp %q", notification.Timestamp)
	}
	if notification.IsRead || notification.ActionType != ActionViewPost || notification.PostName != "Pad Thai" {
		t.Fatalf("unexpected notification %#v", notification)
	}
	if notification.LikeCount == nil || *notification.LikeCount != 3 {
		t.Fatalf("expected like count 3, got %v", notification.LikeCount)
	}

	stored := mustLoadStored(t, store)
	if len(stored) != 1 || stored[0].ID != notification.ID {
		t.Fatalf("expected notification to be persisted, got %#v", stored)
	}
}

func TestCreateCommentNotificationTruncatesDescription(t *testing.T) {
	generator, _ := mustNew(t, storage.NewMemoryStore(), nil)
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"short", "Yum!", "Yum!"},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"fifty one", strings.Repeat("b", 51), strings.Repeat("b", 50) + "..."},
		{"multibyte", strings.Repeat("é", 60), strings.Repeat("é", 50) + "..."},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			notification, created, err := generator.Create(context.Background(), Event{
				Type:        TypeSocialComment,
				PostID:      "post-1",
				FromUser:    users.Identity{ID: "user_lola", Username: "lola.bakes"},
				PostTitle:   "Croissant",
				CommentText: testCase.text,
			})
			if err != nil || !created {
				t.Fatalf("Create: created=%v err=%v", created, err)
			}
			if notification.Title != "New Comment!" {
				t.Fatalf("unexpected title %q", notification.Title)
			}
			if notification.Description != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, notification.Description)
			}
			if notification.CommentText != testCase.text {
				t.Fatalf("full comment text must be kept, got %q", notification.CommentText)
			}
		})
	}
}

func TestCreateNeverNotifiesOwner(t *testing.T) {
	store := storagetest.NewFaultyStore(nil)
	generator, _ := mustNew(t, store, nil)

	_, created, err := generator.Create(context.Background(), likeEvent(ownerID))
	if err != nil || created {
		t.Fatalf("expected self event to be ignored, created=%v err=%v", created, err)
	}
	if store.Writes() != 0 {
		t.Fatalf("self event must not write, got %d writes", store.Writes())
	}
}

func TestCreateRejectsUnsupportedTypes(t *testing.T) {
	generator, _ := mustNew(t, storage.NewMemoryStore(), nil)
	for _, notificationType := range []Type{TypeSocialFollow, TypeSocialMention, TypeAchievement, TypeReminder} {
		event := likeEvent("user_kenji")
		event.Type = notificationType
		if _, _, err := generator.Create(context.Background(), event); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", notificationType, err)
		}
	}
}

func TestCreateCapsRetainedNotifications(t *testing.T) {
	store := storage.NewMemoryStore()
	generator, _ := mustNew(t, store, nil)

	var last Notification
	for index := 1; index <= MaxRetained+1; index++ {
		notification, created, err := generator.Create(context.Background(), likeEvent(fmt.Sprintf("user_%d", index)))
		if err != nil || !created {
			t.Fatalf("call %d: created=%v err=%v", index, created, err)
		}
		last = notification
	}

	stored := mustLoadStored(t, store)
	if len(stored) != MaxRetained {
		t.Fatalf("expected %d notifications, got %d", MaxRetained, len(stored))
	}
	if stored[0].ID != last.ID || stored[0].FromUser.ID != "user_51" {
		t.Fatalf("expected head from the last call, got %#v", stored[0])
	}
	if stored[MaxRetained-1].FromUser.ID != "user_2" {
		t.Fatalf("expected the first call to be dropped, tail is %#v", stored[MaxRetained-1].FromUser)
	}
}

func TestCreateKeepsIDsUniqueWithinOneMillisecond(t *testing.T) {
	store := storage.NewMemoryStore()
	generator, _ := mustNew(t, store, nil)

	seen := map[string]bool{}
	for index := 0; index < 5; index++ {
		notification, _, err := generator.Create(context.Background(), likeEvent("user_kenji"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[notification.ID] {
			t.Fatalf("duplicate id %q", notification.ID)
		}
		seen[notification.ID] = true
	}

	stored := mustLoadStored(t, store)
	for index := 1; index < len(stored); index++ {
		newer, _ := stored[index-1].Time()
		older, _ := stored[index].Time()
		if !newer.After(older) {
			t.Fatalf("expected strictly descending timestamps at %d: %s then %s", index, stored[index-1].Timestamp, stored[index].Timestamp)
		}
	}
}

func TestCreateReportsPersistFailure(t *testing.T) {
	store := storagetest.NewFaultyStore(nil)
	generator, _ := mustNew(t, store, nil)
	store.FailWrites(true)

	_, created, err := generator.Create(context.Background(), likeEvent("user_kenji"))
	if created || apperr.Code(err) != "notifications.create.persist_failed" {
		t.Fatalf("expected persist_failed, created=%v err=%v", created, err)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview(""); got != "" {
		t.Fatalf("expected empty preview, got %q", got)
	}
	if got := Preview(strings.Repeat("x", 80)); len([]rune(got)) != 53 {
		t.Fatalf("expected 50 runes plus ellipsis, got %q", got)
	}
}
