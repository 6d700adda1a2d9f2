package feed

import (
	"strings"
	"time"
)

// Catalog is the read-only post dataset served to the feed.
type Catalog struct {
	posts []Post
	byID  map[string]Post
}

func NewCatalog(posts []Post) *Catalog {
	catalog := &Catalog{
		posts: make([]Post, 0, len(posts)),
		byID:  make(map[string]Post, len(posts)),
	}
	for _, post := range posts {
		if strings.TrimSpace(post.ID) == "" {
			continue
		}
		if _, dup := catalog.byID[post.ID]; dup {
			continue
		}
		catalog.posts = append(catalog.posts, post)
		catalog.byID[post.ID] = post
	}
	return catalog
}

// Posts returns a copy of every post in catalog order.
func (c *Catalog) Posts() []Post {
	posts := make([]Post, len(c.posts))
	copy(posts, c.posts)
	return posts
}

// Lookup returns the post with id.
func (c *Catalog) Lookup(id string) (Post, bool) {
	post, ok := c.byID[strings.TrimSpace(id)]
	return post, ok
}

// SamplePosts returns the bundled mock feed, timestamped relative to now. The first two posts belong to ownerID.
func SamplePosts(now time.Time, ownerID string) []Post {
	at := func(ago time.Duration) int64 {
		return now.Add(-ago).UnixMilli()
	}
	rating := func(value float64) *float64 {
		return &value
	}
	return []Post{
		{ID: "post_1", AuthorID: ownerID, Title: "Spicy Miso Ramen", ImageURL: "https://images.tastelog.app/posts/ramen.jpg", Rating: rating(4.5), Timestamp: at(3 * time.Hour)},
		{ID: "post_2", AuthorID: ownerID, Title: "Sourdough Toast", Rating: rating(4.0), Timestamp: at(30 * time.Hour)},
		{ID: "post_3", AuthorID: "user_anna", Title: "Coq au Vin", ImageURL: "https://images.tastelog.app/posts/coq.jpg", Rating: rating(4.8), Timestamp: at(45 * time.Minute)},
		{ID: "post_4", AuthorID: "user_mia", Title: "Roasted Veggie Bowl", Rating: rating(4.2), Timestamp: at(5 * time.Hour)},
		{ID: "post_5", AuthorID: "user_kenji", Title: "Tonkotsu at Midnight", ImageURL: "https://images.tastelog.app/posts/tonkotsu.jpg", Rating: rating(4.9), Timestamp: at(2 * time.Hour)},
		{ID: "post_6", AuthorID: "user_lola", Title: "Almond Croissant", Rating: rating(4.6), Timestamp: at(26 * time.Hour)},
		{ID: "post_7", AuthorID: "user_sam", Title: "Smoked Brisket", ImageURL: "https://images.tastelog.app/posts/brisket.jpg", Rating: rating(4.7), Timestamp: at(3 * 24 * time.Hour)},
	}
}
