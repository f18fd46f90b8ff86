package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/service"
	"github.com/notekeep/notekeep/internal/testutil"
)

const testSecret = "middleware-test-secret"

type authEnv struct {
	handler http.Handler
	codec   *auth.TokenCodec
	metrics *metrics.InMemoryRecorder
	logs    *bytes.Buffer
	userID  int64
	sawUser *model.User
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	codec, err := auth.NewTokenCodec(testSecret, "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	store := testutil.NewMemoryStore()
	user, err := store.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	env := &authEnv{
		codec:   codec,
		metrics: metrics.NewInMemory(),
		logs:    &bytes.Buffer{},
		userID:  user.ID,
	}

	logger := slog.New(slog.NewJSONHandler(env.logs, nil))
	users := service.NewAuthService(store, nil, codec, env.metrics, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.sawUser = auth.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	env.handler = Auth(AuthConfig{
		Logger:  logger,
		Tokens:  codec,
		Users:   users,
		Metrics: env.metrics,
	})(next)

	return env
}

func signRaw(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name        string
		header      func(env *authEnv) string
		wantMessage string
		wantReason  string
	}{
		{
			name:        "missing header",
			header:      func(*authEnv) string { return "" },
			wantMessage: "Missing or invalid Authorization header",
			wantReason:  metrics.ReasonMissingToken,
		},
		{
			name:        "wrong scheme",
			header:      func(*authEnv) string { return "Basic YWxpY2U6cGFzc3dvcmQ=" },
			wantMessage: "Missing or invalid Authorization header",
			wantReason:  metrics.ReasonMissingToken,
		},
		{
			name:        "garbage token",
			header:      func(*authEnv) string { return "Bearer not-a-jwt" },
			wantMessage: "Invalid token",
			wantReason:  metrics.ReasonInvalidToken,
		},
		{
			name: "expired token",
			header: func(env *authEnv) string {
				token, err := env.codec.WithClock(func() time.Time { return now.Add(-2 * time.Hour) }).Issue(env.userID)
				if err != nil {
					panic(err)
				}
				return "Bearer " + token
			},
			wantMessage: "Invalid token",
			wantReason:  metrics.ReasonInvalidToken,
		},
		{
			name: "non numeric subject",
			header: func(*authEnv) string {
				return "Bearer " + signRaw(t, jwt.MapClaims{
					"sub": "alice",
					"iat": now.Unix(),
					"exp": now.Add(time.Hour).Unix(),
				})
			},
			wantMessage: "Invalid token subject",
			wantReason:  metrics.ReasonInvalidToken,
		},
		{
			name: "unknown user",
			header: func(env *authEnv) string {
				token, err := env.codec.Issue(9999)
				if err != nil {
					panic(err)
				}
				return "Bearer " + token
			},
			wantMessage: "User not found",
			wantReason:  metrics.ReasonUnknownUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newAuthEnv(t)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if h := tt.header(env); h != "" {
				req.Header.Set("Authorization", h)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := decodeError(t, rec); got != tt.wantMessage {
				t.Errorf("error = %q, want %q", got, tt.wantMessage)
			}
			if env.sawUser != nil {
				t.Error("next handler must not run on rejection")
			}
			if got := env.metrics.Snapshot().AuthFailures[tt.wantReason]; got != 1 {
				t.Errorf("auth failures[%s] = %d, want 1", tt.wantReason, got)
			}
		})
	}
}

func TestAuth_ValidTokenAttachesUser(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)

	token, err := env.codec.Issue(env.userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.sawUser == nil || env.sawUser.ID != env.userID || env.sawUser.Username != "alice" {
		t.Errorf("context user = %+v, want alice", env.sawUser)
	}
}

func TestAuth_SchemeIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, scheme := range []string{"bearer", "BEARER", "BeArEr"} {
		t.Run(scheme, func(t *testing.T) {
			t.Parallel()
			env := newAuthEnv(t)

			token, err := env.codec.Issue(env.userID)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", scheme+" "+token)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if env.sawUser == nil || env.sawUser.ID != env.userID {
				t.Errorf("context user = %+v, want alice", env.sawUser)
			}
		})
	}
}

func TestAuth_TokenNeverLogged(t *testing.T) {
	t.Parallel()
	env := newAuthEnv(t)

	token, err := env.codec.WithClock(func() time.Time { return time.Now().Add(-24 * time.Hour) }).Issue(env.userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	env.handler.ServeHTTP(httptest.NewRecorder(), req)

	logs := env.logs.String()
	if !strings.Contains(logs, "authentication failed") {
		t.Fatalf("expected a failure log line, got %q", logs)
	}
	if strings.Contains(logs, token) {
		t.Error("log output contains the bearer token")
	}
}

type failingResolver struct{}

func (failingResolver) ResolveUser(context.Context, int64) (*model.User, error) {
	return nil, errors.New("database unavailable")
}

func TestAuth_ResolverErrorIs500(t *testing.T) {
	t.Parallel()

	codec, err := auth.NewTokenCodec(testSecret, "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, err := codec.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := Auth(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Tokens: codec,
		Users:  failingResolver{},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
