package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/repository"
)

// UserStore persists accounts. Implemented by *repository.Repository.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
}

// IdentityCache caches resolved users by id. Implemented by *cache.UserCache.
type IdentityCache interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// TokenIssuer signs access tokens. Implemented by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// AuthService handles signup, login and identity resolution.
type AuthService struct {
	users   UserStore
	cache   IdentityCache
	tokens  TokenIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService. cache may be nil.
func NewAuthService(users UserStore, cache IdentityCache, tokens TokenIssuer, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		cache:   cache,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger,
	}
}

// Signup creates an account. The username is trimmed; the password is used as given.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}
	if hasNul(username) {
		return nil, ErrNulCharacter
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncSignup()
	return user, nil
}

// Login verifies credentials and returns a signed access token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrCredentialsRequired
	}
	// No stored username contains NUL.
	if hasNul(username) {
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.LoginFailure)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginFailure)
		return "", ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return token, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failures are logged only.
func (s *AuthService) upgradeHash(ctx context.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logger.Warn("password_rehash_failed", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("password_rehashed", "user_id", userID)
}

// ResolveUser loads the user a token subject refers to, consulting the identity cache first.
func (s *AuthService) ResolveUser(ctx context.Context, userID int64) (*model.User, error) {
	if s.cache != nil {
		user, err := s.cache.GetUser(ctx, userID)
		if err == nil {
			s.metrics.IncIdentityCacheHit()
			return user, nil
		}
		s.metrics.IncIdentityCacheMiss()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUser(ctx, user); err != nil {
			s.logger.Warn("identity_cache_set_failed", "user_id", userID, "error", err)
		}
	}

	return user, nil
}

// DeleteAccount removes the user and every note they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteUser(ctx, userID); err != nil {
			s.logger.Warn("identity_cache_evict_failed", "user_id", userID, "error", err)
		}
	}

	s.metrics.IncAccountDeleted()
	return nil
}
