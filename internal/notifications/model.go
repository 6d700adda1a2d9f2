// Package notifications derives notifications from social events and manages the local inbox.
package notifications

import (
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
)

// MaxRetained is the number of notifications kept in the inbox; older ones are dropped.
const MaxRetained = 50

// TimestampLayout is ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ActionViewPost opens the post the notification refers to.
const ActionViewPost = "view_post"

// Type enumerates notification kinds.
type Type string

const (
	TypeSocialLike    Type = "social_like"
	TypeSocialComment Type = "social_comment"
	TypeSocialFollow  Type = "social_follow"
	TypeSocialMention Type = "social_mention"
	TypeAchievement   Type = "achievement"
	TypeReminder      Type = "reminder"
)

// Notification is one entry of the notifications collection.
type Notification struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Timestamp   string          `json:"timestamp"`
	IsRead      bool            `json:"isRead"`
	ActionType  string          `json:"actionType"`
	PostID      string          `json:"postId,omitempty"`
	PostName    string          `json:"postName,omitempty"`
	FromUser    *users.Identity `json:"fromUser,omitempty"`
	CommentText string          `json:"commentText,omitempty"`
	LikeCount   *int            `json:"likeCount,omitempty"`
}

// Time parses Timestamp. The second result is false when the value is not a valid timestamp.
func (n Notification) Time() (time.Time, bool) {
	return parseTimestamp(n.Timestamp)
}

// FormatTimestamp renders t in the stored timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(value string) (time.Time, bool) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
