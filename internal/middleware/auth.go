package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/service"
)

// Auth gate responses.
const (
	msgMissingHeader  = "Missing or invalid Authorization header"
	msgInvalidToken   = "Invalid token"
	msgInvalidSubject = "Invalid token subject"
	msgUserNotFound   = "User not found"
)

// TokenValidator decodes access tokens. Implemented by *auth.TokenCodec.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserResolver loads the user a token refers to. Implemented by *service.AuthService.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID int64) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  TokenValidator
	Users   UserResolver
	Metrics metrics.Recorder
}

// Auth returns a middleware that requires a valid bearer token.
// On success the resolved user is stored in the request context
// and can be read with auth.UserFromContext.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason, message string, attrs ...any) {
				cfg.Metrics.IncAuthFailure(reason)
				attrs = append(attrs,
					slog.String("reason", reason),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				cfg.Logger.Warn("authentication failed", attrs...)
				writeError(w, http.StatusUnauthorized, message)
			}

			// The scheme name is matched case-insensitively (RFC 7235).
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				reject(metrics.ReasonMissingToken, msgMissingHeader)
				return
			}

			claims, err := cfg.Tokens.Validate(token)
			if err != nil {
				message := msgInvalidToken
				if errors.Is(err, auth.ErrTokenSubject) {
					message = msgInvalidSubject
				}
				reject(metrics.ReasonInvalidToken, message, slog.String("error", err.Error()))
				return
			}

			// Validate guarantees a numeric subject.
			userID, _ := claims.UserID()

			user, err := cfg.Users.ResolveUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					reject(metrics.ReasonUnknownUser, msgUserNotFound, slog.Int64("user_id", userID))
					return
				}
				cfg.Logger.Error("identity lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
