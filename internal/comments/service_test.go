package comments

import (
	"context"
	"testing"

	"github.com/MarcoPoloResearchLab/tastelog/internal/apperr"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage/storagetest"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
)

var anna = users.Identity{ID: "user_anna", Username: "chef_anna", DisplayName: "Anna Moreau"}

func mustNewService(t *testing.T, store storage.Store) *Service {
	t.Helper()
	service, err := NewService(Config{Store: store})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func newComment(id, postID string, timestamp int64) Comment {
	return Comment{ID: id, PostID: postID, User: anna, Text: "Looks great", CreatedAt: CreatedAtNow, Timestamp: timestamp}
}

func TestAddAndForPostFiltersByPost(t *testing.T) {
	ctx := context.Background()
	service := mustNewService(t, storage.NewMemoryStore())

	for _, comment := range []Comment{
		newComment("c1", "post-1", 100),
		newComment("c2", "post-2", 200),
		newComment("c3", "post-1", 300),
	} {
		if err := service.Add(ctx, comment); err != nil {
			t.Fatalf("Add(%s) failed: %v", comment.ID, err)
		}
	}

	found, err := service.ForPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("ForPost failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(found))
	}
	for _, comment := range found {
		if comment.PostID != "post-1" {
			t.Fatalf("unexpected comment %#v", comment)
		}
	}
	if found[0].User.Username != "chef_anna" {
		t.Fatalf("author not persisted: %#v", found[0].User)
	}
}

func TestForPostUnknownPostReturnsEmpty(t *testing.T) {
	service := mustNewService(t, storage.NewMemoryStore())
	found, err := service.ForPost(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ForPost failed: %v", err)
	}
	if found == nil || len(found) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", found)
	}
}

func TestSortNewestFirstIsStable(t *testing.T) {
	comments := []Comment{
		newComment("a", "p", 10),
		newComment("b", "p", 30),
		newComment("c", "p", 10),
		newComment("d", "p", 20),
	}
	SortNewestFirst(comments)

	expected := []string{"b", "d", "a", "c"}
	for index, id := range expected {
		if comments[index].ID != id {
			t.Fatalf("position %d: expected %s, got %s", index, id, comments[index].ID)
		}
	}
}

func TestAddRejectsIncompleteComment(t *testing.T) {
	service := mustNewService(t, storage.NewMemoryStore())
	comment := newComment("c1", "post-1", 1)
	comment.Text = "   "
	if err := service.Add(context.Background(), comment); apperr.Code(err) != "comments.add.invalid_input" {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestAddReportsPersistFailure(t *testing.T) {
	store := storagetest.NewFaultyStore(nil)
	service := mustNewService(t, store)
	store.FailWrites(true)

	err := service.Add(context.Background(), newComment("c1", "post-1", 1))
	if apperr.Code(err) != "comments.add.persist_failed" {
		t.Fatalf("expected persist_failed, got %v", err)
	}

	store.FailWrites(false)
	found, _ := service.ForPost(context.Background(), "post-1")
	if len(found) != 0 {
		t.Fatalf("failed add must not persist, got %#v", found)
	}
}
