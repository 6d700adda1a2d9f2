// Package feed orders posts for the "Following" and "For You" tabs.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarcoPoloResearchLab/tastelog/internal/following"
	"github.com/MarcoPoloResearchLab/tastelog/internal/interactions"
)

// Tab names accepted by Assemble.
const (
	TabFollowing = "following"
	TabForYou    = "forYou"
)

// ErrUnknownTab indicates a tab other than following or forYou.
var ErrUnknownTab = errors.New("feed: unknown tab")

// Post is a feed item. Timestamp is epoch milliseconds.
type Post struct {
	ID        string   `json:"id"`
	AuthorID  string   `json:"authorId"`
	Title     string   `json:"title"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Assemble returns posts for tab. forYou is every post, newest first, ties in input order.
// following is the forYou ordering restricted to authors in the set.
func Assemble(tab string, followed following.Set, posts []Post) ([]Post, error) {
	switch tab {
	case TabForYou:
		return newestFirst(posts), nil
	case TabFollowing:
		ordered := newestFirst(posts)
		filtered := make([]Post, 0, len(ordered))
		for _, post := range ordered {
			if followed.Contains(post.AuthorID) {
				filtered = append(filtered, post)
			}
		}
		return filtered, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
}

func newestFirst(posts []Post) []Post {
	ordered := make([]Post, len(posts))
	copy(ordered, posts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp > ordered[j].Timestamp
	})
	return ordered
}

// InteractionReader summarizes a viewer's likes and saves. *interactions.Service implements it.
type InteractionReader interface {
	Summarize(ctx context.Context, userID string) (interactions.Summary, error)
}

// Entry is a post decorated with the viewer's interaction state.
type Entry struct {
	Post      Post `json:"post"`
	IsLiked   bool `json:"isLiked"`
	IsSaved   bool `json:"isSaved"`
	LikeCount int  `json:"likeCount"`
}

// Decorate attaches like and save state for userID to each post, keeping order.
func Decorate(ctx context.Context, reader InteractionReader, posts []Post, userID string) ([]Entry, error) {
	entries := make([]Entry, 0, len(posts))
	if len(posts) == 0 {
		return entries, nil
	}
	summary, err := reader.Summarize(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		entries = append(entries, Entry{
			Post:      post,
			IsLiked:   summary.IsLiked(post.ID),
			IsSaved:   summary.IsSaved(post.ID),
			LikeCount: summary.LikeCount(post.ID),
		})
	}
	return entries, nil
}
