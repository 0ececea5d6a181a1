package accounts

import "time"

// User represents a registered account. A row exists only after a
// pre-registration token has been redeemed; before that the pending
// state lives entirely in the outstanding token.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Zipcode      string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
