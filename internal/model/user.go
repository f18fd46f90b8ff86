// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// User represents an account that owns notes.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// Subject returns the token subject for the user (decimal id).
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}

// CachedUser represents the identity stored in Redis by the auth gate.
// The password hash is deliberately absent.
type CachedUser struct {
	Username  string `redis:"username"`
	CreatedAt string `redis:"created_at"` // Unix timestamp
}

// ToUser converts CachedUser to the User domain model.
func (c *CachedUser) ToUser(id int64) *User {
	user := &User{
		ID:       id,
		Username: c.Username,
	}

	if c.CreatedAt != "" {
		if ts, err := strconv.ParseInt(c.CreatedAt, 10, 64); err == nil {
			user.CreatedAt = time.Unix(ts, 0).UTC()
		}
	}

	return user
}

// ToCachedUser converts User to its cached form.
func (u *User) ToCachedUser() *CachedUser {
	return &CachedUser{
		Username:  u.Username,
		CreatedAt: strconv.FormatInt(u.CreatedAt.Unix(), 10),
	}
}
