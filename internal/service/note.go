package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
)

// NoteStore persists notes. Implemented by *repository.Repository.
type NoteStore interface {
	CreateNote(ctx context.Context, note *model.Note) error
	GetNoteByID(ctx context.Context, id int64) (*model.Note, error)
	ListNotesByOwner(ctx context.Context, userID int64) ([]*model.Note, error)
	ListNotesPageByOwner(ctx context.Context, userID int64, page model.PageRequest) ([]*model.Note, int64, error)
	UpdateNote(ctx context.Context, note *model.Note) error
	DeleteNote(ctx context.Context, id, userID int64) error
}

// NoteService handles note business logic. Every operation is scoped to an owner.
type NoteService struct {
	notes   NoteStore
	metrics metrics.Recorder
}

// NewNoteService creates a new NoteService.
func NewNoteService(notes NoteStore, recorder metrics.Recorder) *NoteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &NoteService{notes: notes, metrics: recorder}
}

// Create stores a new note owned by ownerID.
func (s *NoteService) Create(ctx context.Context, ownerID int64, title, content string) (*model.Note, error) {
	if title == "" || content == "" {
		return nil, ErrNoteFieldsRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, ErrTitleTooLong
	}
	if hasNul(title, content) {
		return nil, ErrNulCharacter
	}

	note := &model.Note{
		Title:   title,
		Content: content,
		UserID:  ownerID,
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		// The owner was deleted after its token was resolved.
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.metrics.IncNoteCreated()
	return note, nil
}

// List returns all of the owner's notes in id order.
func (s *NoteService) List(ctx context.Context, ownerID int64) ([]*model.Note, error) {
	notes, err := s.notes.ListNotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ListPage returns one page of the owner's notes. A page past the end has no notes
// but still reports the totals.
func (s *NoteService) ListPage(ctx context.Context, ownerID int64, req model.PageRequest) (*model.NotePage, error) {
	req = req.Normalize()

	notes, total, err := s.notes.ListNotesPageByOwner(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list notes page: %w", err)
	}

	return &model.NotePage{
		Notes:   notes,
		Page:    req.Page,
		PerPage: req.PerPage,
		Pages:   model.PageCount(total, req.PerPage),
		Total:   total,
	}, nil
}

// Update applies patch to a note owned by ownerID.
// A missing note is ErrNoteNotFound; someone else's note is ErrForbidden.
// Ownership is resolved before the patch is validated.
func (s *NoteService) Update(ctx context.Context, noteID, ownerID int64, patch model.NotePatch) (*model.Note, error) {
	note, err := s.owned(ctx, noteID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return note, nil
	}

	patch.Apply(note)
	if err := s.notes.UpdateNote(ctx, note); err != nil {
		// Deleted between lookup and update.
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.metrics.IncNoteUpdated()
	return note, nil
}

// Delete removes a note owned by ownerID.
func (s *NoteService) Delete(ctx context.Context, noteID, ownerID int64) error {
	if _, err := s.owned(ctx, noteID, ownerID); err != nil {
		return err
	}

	if err := s.notes.DeleteNote(ctx, noteID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}

	s.metrics.IncNoteDeleted()
	return nil
}

// owned loads a note and checks it belongs to ownerID. Existence is checked first.
func (s *NoteService) owned(ctx context.Context, noteID, ownerID int64) (*model.Note, error) {
	note, err := s.notes.GetNoteByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}

	if !note.OwnedBy(ownerID) {
		return nil, ErrForbidden
	}

	return note, nil
}

func validatePatch(patch model.NotePatch) error {
	if (patch.Title != nil && *patch.Title == "") || (patch.Content != nil && *patch.Content == "") {
		return ErrNoteFieldEmpty
	}
	if patch.Title != nil && utf8.RuneCountInString(*patch.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if (patch.Title != nil && hasNul(*patch.Title)) || (patch.Content != nil && hasNul(*patch.Content)) {
		return ErrNulCharacter
	}
	return nil
}
