// Package model defines the data structures used throughout the application.
// The json tags are the field names the frontend and the legacy data.json
// document use.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: the signup form (username, email, password)
// and Google sign-in (profile fields, no password). The same email always maps
// to the same account; usernames are NOT unique, because Google-derived
// usernames can collide.
//
// WHY PasswordHash HAS json:"-"?
// The struct is returned by GET /user. The hash must never leave the server,
// so encoding/json skips it entirely. Storage backends persist it through
// their own columns or record types.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`                  // bcrypt hash, empty for Google-only accounts
	GoogleID     string    `json:"googleId,omitempty"` // Google "sub" claim
	Name         string    `json:"name,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	IsGoogleAuth bool      `json:"isGoogleAuth"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
