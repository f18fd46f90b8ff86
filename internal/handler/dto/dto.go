// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/notekeep/notekeep/internal/model"

// CredentialsRequest is the body of POST /signup and POST /login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// CreateNoteRequest represents the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest represents the request body for updating a note.
// Absent (or null) fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// NoteResponse represents a note in API responses.
type NoteResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NotePageResponse is the pagination envelope for GET /notes?page=N.
type NotePageResponse struct {
	Items   []NoteResponse `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Pages   int            `json:"pages"`
	Total   int64          `json:"total"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username}
}

// ToNoteResponse converts a Note model to NoteResponse DTO.
func ToNoteResponse(n *model.Note) NoteResponse {
	return NoteResponse{ID: n.ID, Title: n.Title, Content: n.Content}
}

// ToNoteResponses converts notes, always returning a non-nil slice.
func ToNoteResponses(notes []*model.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, ToNoteResponse(n))
	}
	return out
}

// ToNotePageResponse converts a NotePage to its envelope.
func ToNotePageResponse(p *model.NotePage) NotePageResponse {
	return NotePageResponse{
		Items:   ToNoteResponses(p.Notes),
		Page:    p.Page,
		PerPage: p.PerPage,
		Pages:   p.Pages,
		Total:   p.Total,
	}
}

// ToUpdatePatch converts the request to a model patch.
func (r UpdateNoteRequest) ToUpdatePatch() model.NotePatch {
	return model.NotePatch{Title: r.Title, Content: r.Content}
}
