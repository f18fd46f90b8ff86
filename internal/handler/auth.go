package handler

import (
	"log/slog"
	"net/http"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/handler/dto"
	"github.com/notekeep/notekeep/internal/service"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[dto.CredentialsRequest](r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	user, err := h.svc.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_signed_up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[dto.CredentialsRequest](r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// DeleteMe handles DELETE /me. The account and all of its notes are removed.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	if err := h.svc.DeleteAccount(r.Context(), user.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_deleted", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
