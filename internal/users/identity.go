package users

import "strings"

// Identity is the public profile attached to comments and notifications.
type Identity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

// Valid reports whether the identity carries the fields every consumer relies on.
func (i Identity) Valid() bool {
	return normalize(i.ID) != "" && normalize(i.Username) != ""
}

// normalize value helper used across the directory implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}

// SampleAuthors returns the authors of the bundled mock feed.
func SampleAuthors() []Identity {
	return []Identity{
		{ID: "user_anna", Username: "chef_anna", DisplayName: "Anna Moreau", ProfilePhoto: "https://images.tastelog.app/avatars/anna.jpg"},
		{ID: "user_kenji", Username: "kenji_eats", DisplayName: "Kenji Sato", ProfilePhoto: "https://images.tastelog.app/avatars/kenji.jpg"},
		{ID: "user_lola", Username: "lola.bakes", DisplayName: "Lola Díaz"},
		{ID: "user_sam", Username: "sam_grills", DisplayName: "Sam Okafor", ProfilePhoto: "https://images.tastelog.app/avatars/sam.jpg"},
		{ID: "user_mia", Username: "mia_veggie", DisplayName: "Mia Lindqvist"},
	}
}
