package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/handler/dto"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/service"
)

// NoteHandler handles HTTP requests for note operations.
type NoteHandler struct {
	svc    *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger}
}

// Create handles POST /notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	req, err := decodeBody[dto.CreateNoteRequest](r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	note, err := h.svc.Create(r.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("note_created", "note_id", note.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, dto.ToNoteResponse(note))
}

// List handles GET /notes. With ?page=N it returns a pagination envelope,
// otherwise a plain array of every note.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	req, paged := parsePageRequest(r.URL.Query())
	if !paged {
		notes, err := h.svc.List(r.Context(), user.ID)
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ToNoteResponses(notes))
		return
	}

	page, err := h.svc.ListPage(r.Context(), user.ID, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToNotePageResponse(page))
}

// Update handles PATCH /notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	req, err := decodeBody[dto.UpdateNoteRequest](r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	note, err := h.svc.Update(r.Context(), id, user.ID, req.ToUpdatePatch())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("note_updated", "note_id", note.ID, "user_id", user.ID)
	writeJSON(w, http.StatusOK, dto.ToNoteResponse(note))
}

// Delete handles DELETE /notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	if err := h.svc.Delete(r.Context(), id, user.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("note_deleted", "note_id", id, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// noteID parses the {id} path parameter as a positive integer.
func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parsePageRequest reads page and per_page. paged is false when page is
// absent, not an integer, or below 1. A bad per_page falls back to the default.
func parsePageRequest(q url.Values) (req model.PageRequest, paged bool) {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		return model.PageRequest{}, false
	}

	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil {
		perPage = model.DefaultPerPage
	}

	return model.PageRequest{Page: page, PerPage: perPage}, true
}
