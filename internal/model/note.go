package model

import (
	"math"
	"time"
)

// Note represents a text note owned by exactly one user.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the note belongs to the given user.
func (n *Note) OwnedBy(userID int64) bool {
	return n.UserID == userID
}

// NotePatch carries the optional fields of a note update.
// A nil field is left untouched.
type NotePatch struct {
	Title   *string
	Content *string
}

// IsEmpty returns true if the patch changes nothing.
func (p NotePatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil
}

// Apply copies the provided fields onto the note.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
}

// Pagination defaults.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100

	// MaxPage keeps Offset from overflowing at any per-page size.
	MaxPage = math.MaxInt / MaxPerPage
)

// PageRequest describes a requested page of results. Page is 1-based.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps the request into valid bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the number of rows to skip for this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NotePage is one page of a user's notes plus totals.
type NotePage struct {
	Notes   []*Note
	Page    int
	PerPage int
	Pages   int
	Total   int64
}

// PageCount returns ceil(total/perPage).
func PageCount(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
