package model

import "time"

// DateLayout renders Vlog.Date the way the frontend displays it,
// e.g. "10/19/2026, 7:54:03 PM".
const DateLayout = "1/2/2006, 3:04:05 PM"

// Vlog is a user-authored post: a title, a short description, rich content
// and a cover image.
//
// OWNERSHIP FIELDS:
//   - Username is whatever identifier the author supplied at upload time.
//   - AuthorID is the id of the user record that matched Username at upload
//     time. Older records may not have it, and some carry a raw username in it.
//
// See package identity for how these are reconciled.
type Vlog struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AuthorID    string `json:"authorId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Image       string `json:"image"`     // public path or URL of the cover image
	Date        string `json:"date"`      // human-readable, see DateLayout
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds
}

// Touch refreshes Date and Timestamp to t.
func (v *Vlog) Touch(t time.Time) {
	v.Date = t.Format(DateLayout)
	v.Timestamp = t.UnixMilli()
}
