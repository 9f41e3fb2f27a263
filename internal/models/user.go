package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the public subset of a user embedded in post and
// comment views.
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// Summary returns the user's public fields.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}

// UserProfile is the read-side shape for a profile page: the account's
// public fields with the owned posts expanded.
type UserProfile struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	ProfileImage string     `json:"profile_image"`
	CreatedAt    time.Time  `json:"createdAt"`
	Posts        []PostView `json:"posts"`
}
