package interactions

// Record marks that a user liked or saved a post. Timestamp is epoch milliseconds.
type Record struct {
	PostID    string `json:"postId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// LikeRecord is a row of the likedPosts collection.
type LikeRecord = Record

// SaveRecord is a row of the savedPosts collection.
type SaveRecord = Record

func (r Record) matches(postID, userID string) bool {
	return r.PostID == postID && r.UserID == userID
}
