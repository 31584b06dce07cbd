package domain

import "time"

// UserCredential is a user's stored file source credential. The refresh
// token is exchanged for short-lived access tokens on demand.
type UserCredential struct {
	UserID       string
	RefreshToken string
	// AccountEmail is informational only.
	AccountEmail string
	UpdatedAt    time.Time
}
