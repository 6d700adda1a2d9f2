package notifications

import (
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
)

// Action types of the non-social sample entries.
const (
	ActionViewProfile  = "view_profile"
	ActionViewProgress = "view_progress"
	ActionLogMeal      = "log_meal"
)

// Samples returns the bootstrap notifications, newest first, timestamped relative to now.
func Samples(now time.Time) []Notification {
	authors := map[string]users.Identity{}
	for _, author := range users.SampleAuthors() {
		authors[author.ID] = author
	}
	from := func(id string) *users.Identity {
		author := authors[id]
		return &author
	}
	at := func(ago time.Duration) string {
		return FormatTimestamp(now.Add(-ago))
	}
	likes := func(count int) *int {
		return &count
	}

	return []Notification{
		{
			ID:          "sample_like_1",
			Type:        TypeSocialLike,
			Title:       titleLike,
			Description: "@kenji_eats liked your Spicy Miso Ramen post",
			Timestamp:   at(5 * time.Minute),
			ActionType:  ActionViewPost,
			PostID:      "post_1",
			PostName:    "Spicy Miso Ramen",
			FromUser:    from("user_kenji"),
			LikeCount:   likes(12),
		},
		{
			ID:          "sample_comment_1",
			Type:        TypeSocialComment,
			Title:       titleComment,
			Description: Preview("This looks amazing! Did you make the broth from scratch or use a base?"),
			Timestamp:   at(2 * time.Hour),
			ActionType:  ActionViewPost,
			PostID:      "post_1",
			PostName:    "Spicy Miso Ramen",
			FromUser:    from("user_lola"),
			CommentText: "This looks amazing! Did you make the broth from scratch or use a base?",
		},
		{
			ID:          "sample_follow_1",
			Type:        TypeSocialFollow,
			Title:       "New Follower!",
			Description: "@sam_grills started following you",
			Timestamp:   at(20 * time.Hour),
			ActionType:  ActionViewProfile,
			FromUser:    from("user_sam"),
		},
		{
			ID:          "sample_achievement_1",
			Type:        TypeAchievement,
			Title:       "7-Day Streak!",
			Description: "You logged a meal every day this week",
			Timestamp:   at(27 * time.Hour),
			ActionType:  ActionViewProgress,
		},
		{
			ID:          "sample_mention_1",
			Type:        TypeSocialMention,
			Title:       "You were mentioned",
			Description: "@mia_veggie mentioned you in a comment",
			Timestamp:   at(3 * 24 * time.Hour),
			ActionType:  ActionViewPost,
			PostID:      "post_4",
			PostName:    "Roasted Veggie Bowl",
			FromUser:    from("user_mia"),
		},
		{
			ID:          "sample_reminder_1",
			Type:        TypeReminder,
			Title:       "Time to log lunch",
			Description: "Snap a photo of your meal to keep your streak going",
			Timestamp:   at(5 * 24 * time.Hour),
			ActionType:  ActionLogMeal,
		},
		{
			ID:          "sample_like_2",
			Type:        TypeSocialLike,
			Title:       titleLike,
			Description: "@chef_anna liked your Sourdough Toast post",
			Timestamp:   at(9 * 24 * time.Hour),
			IsRead:      true,
			ActionType:  ActionViewPost,
			PostID:      "post_2",
			PostName:    "Sourdough Toast",
			FromUser:    from("user_anna"),
			LikeCount:   likes(4),
		},
		{
			ID:          "sample_achievement_2",
			Type:        TypeAchievement,
			Title:       "First Rating!",
			Description: "You rated your first dish",
			Timestamp:   at(14 * 24 * time.Hour),
			IsRead:      true,
			ActionType:  ActionViewProgress,
		},
	}
}
