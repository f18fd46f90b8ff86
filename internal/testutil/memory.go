package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
)

// MemoryStore is an in-memory stand-in for the repository.
// It returns the same sentinel errors as the PostgreSQL implementation.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[int64]*model.User
	notes      map[int64]*model.Note
	nextUserID int64
	nextNoteID int64
	now        func() time.Time

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*model.User),
		notes: make(map[int64]*model.Note),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser implements service.UserStore.
func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.Username == username {
			return nil, repository.ErrUsernameExists
		}
	}

	s.nextUserID++
	user := &model.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

// GetUserByID implements service.UserStore.
func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetUserByUsername implements service.UserStore.
func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// UpdatePasswordHash implements service.UserStore.
func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// DeleteUser implements service.UserStore.
func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	for noteID, n := range s.notes {
		if n.UserID == id {
			delete(s.notes, noteID)
		}
	}
	delete(s.users, id)
	return nil
}

// CreateNote implements service.NoteStore.
func (s *MemoryStore) CreateNote(_ context.Context, note *model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if _, ok := s.users[note.UserID]; !ok {
		return repository.ErrUserNotFound
	}

	s.nextNoteID++
	now := s.now()
	note.ID = s.nextNoteID
	note.CreatedAt = now
	note.UpdatedAt = now

	copied := *note
	s.notes[note.ID] = &copied
	return nil
}

// GetNoteByID implements service.NoteStore.
func (s *MemoryStore) GetNoteByID(_ context.Context, id int64) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	note, ok := s.notes[id]
	if !ok {
		return nil, repository.ErrNoteNotFound
	}
	copied := *note
	return &copied, nil
}

// ListNotesByOwner implements service.NoteStore.
func (s *MemoryStore) ListNotesByOwner(_ context.Context, userID int64) ([]*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	return s.ownedLocked(userID), nil
}

// ListNotesPageByOwner implements service.NoteStore.
func (s *MemoryStore) ListNotesPageByOwner(_ context.Context, userID int64, page model.PageRequest) ([]*model.Note, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	all := s.ownedLocked(userID)
	total := int64(len(all))

	start := page.Offset()
	if start < 0 || start > len(all) {
		start = len(all)
	}
	end := start + page.PerPage
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], total, nil
}

// UpdateNote implements service.NoteStore.
func (s *MemoryStore) UpdateNote(_ context.Context, note *model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	stored, ok := s.notes[note.ID]
	if !ok || stored.UserID != note.UserID {
		return repository.ErrNoteNotFound
	}

	stored.Title = note.Title
	stored.Content = note.Content
	stored.UpdatedAt = s.now()
	note.UpdatedAt = stored.UpdatedAt
	return nil
}

// DeleteNote implements service.NoteStore.
func (s *MemoryStore) DeleteNote(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	stored, ok := s.notes[id]
	if !ok || stored.UserID != userID {
		return repository.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

// NoteCount returns the number of stored notes across all users.
func (s *MemoryStore) NoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// PasswordHash returns the stored hash for a user, or "" if absent.
func (s *MemoryStore) PasswordHash(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.PasswordHash
	}
	return ""
}

func (s *MemoryStore) ownedLocked(userID int64) []*model.Note {
	notes := make([]*model.Note, 0)
	for _, n := range s.notes {
		if n.UserID == userID {
			copied := *n
			notes = append(notes, &copied)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
	return notes
}

// MemoryIdentityCache is an in-memory identity cache with hit counting.
type MemoryIdentityCache struct {
	mu    sync.Mutex
	users map[int64]model.User
	Hits  int
}

// ErrNotCached is returned by MemoryIdentityCache on a miss.
var ErrNotCached = errors.New("not cached")

// NewMemoryIdentityCache returns an empty cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{users: make(map[int64]model.User)}
}

// GetUser implements service.IdentityCache.
func (c *MemoryIdentityCache) GetUser(_ context.Context, id int64) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.users[id]
	if !ok {
		return nil, ErrNotCached
	}
	c.Hits++
	return &user, nil
}

// SetUser implements service.IdentityCache.
func (c *MemoryIdentityCache) SetUser(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := *user
	cached.PasswordHash = ""
	c.users[user.ID] = cached
	return nil
}

// DeleteUser implements service.IdentityCache.
func (c *MemoryIdentityCache) DeleteUser(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.users, id)
	return nil
}

// Len returns the number of cached users.
func (c *MemoryIdentityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}
