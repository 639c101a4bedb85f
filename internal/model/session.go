package model

import "time"

// Session is the flat projection of a User carried in the signed session
// cookie and returned by GET /auth/user.
type Session struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	IsGoogleAuth bool      `json:"isGoogleAuth"`
	LoginTime    time.Time `json:"loginTime"`
}

// NewSession projects u into a session started at loginTime.
func NewSession(u *User, loginTime time.Time) *Session {
	return &Session{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Picture:      u.Picture,
		IsGoogleAuth: u.IsGoogleAuth,
		LoginTime:    loginTime,
	}
}
