package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/middleware"
	"github.com/notekeep/notekeep/internal/model"
	"github.com/notekeep/notekeep/internal/service"
	"github.com/notekeep/notekeep/internal/testutil"
)

type apiEnv struct {
	router http.Handler
	store  *testutil.MemoryStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := discardLogger()
	store := testutil.NewMemoryStore()

	codec, err := auth.NewTokenCodec("api-test-secret", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	reg := prometheus.NewRegistry()
	recorder := metrics.NewCollector(reg)

	authSvc := service.NewAuthService(store, testutil.NewMemoryIdentityCache(), codec, recorder, logger)
	noteSvc := service.NewNoteService(store, recorder)

	router := NewRouter(RouterConfig{
		Logger: logger,
		Health: NewHealthHandler(&mockHealthChecker{}, nil, logger),
		Auth:   NewAuthHandler(authSvc, logger),
		Notes:  NewNoteHandler(noteSvc, logger),
		AuthGate: middleware.Auth(middleware.AuthConfig{
			Logger:  logger,
			Tokens:  codec,
			Users:   authSvc,
			Metrics: recorder,
		}),
		Metrics:     metrics.Handler(reg),
		MaxBodySize: 1 << 10,
	})

	return &apiEnv{router: router, store: store}
}

// do sends a request and returns the status and raw body.
func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return v
}

func (e *apiEnv) signupAndLogin(t *testing.T, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "password"}
	if status, body := e.do(t, http.MethodPost, "/signup", "", creds); status != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", username, status, body)
	}

	status, body := e.do(t, http.MethodPost, "/login", "", creds)
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, status, body)
	}
	return decode[map[string]string](t, body)["access_token"]
}

type noteJSON struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func TestAPI_Health(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got := decode[map[string]bool](t, body); !got["ok"] {
		t.Errorf("body = %s, want ok=true", body)
	}
}

func TestAPI_SignupAndLogin(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodPost, "/signup", "", map[string]string{"username": "alice", "password": "password"})
	if status != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", status, body)
	}
	user := decode[map[string]any](t, body)
	if user["id"] != float64(1) || user["username"] != "alice" {
		t.Errorf("signup body = %s, want {id:1, username:alice}", body)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("signup response leaks the password hash")
	}

	status, body = env.do(t, http.MethodPost, "/signup", "", map[string]string{"username": "alice", "password": "other"})
	if status != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", status)
	}
	if msg := decode[map[string]string](t, body)["error"]; !strings.Contains(msg, "already") {
		t.Errorf("duplicate signup error = %q", msg)
	}

	status, _ = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", status)
	}

	status, body = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "password"})
	if status != http.StatusOK {
		t.Fatalf("login status = %d", status)
	}
	token := decode[map[string]string](t, body)["access_token"]

	status, body = env.do(t, http.MethodGet, "/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	if me := decode[map[string]any](t, body); me["username"] != "alice" || me["id"] != float64(1) {
		t.Errorf("me body = %s", body)
	}
}

func TestAPI_SignupValidation(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	bodies := []any{
		map[string]string{"username": "alice"},
		map[string]string{"password": "pw"},
		map[string]string{"username": "   ", "password": "pw"},
		`{"username":`,
		nil,
	}

	for i, body := range bodies {
		status, resp := env.do(t, http.MethodPost, "/signup", "", body)
		if status != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, status)
			continue
		}
		if msg := decode[map[string]string](t, resp)["error"]; msg != "username and password required" {
			t.Errorf("case %d: error = %q", i, msg)
		}
	}
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/me"},
		{http.MethodDelete, "/me"},
		{http.MethodGet, "/notes"},
		{http.MethodPost, "/notes"},
		{http.MethodPatch, "/notes/1"},
		{http.MethodDelete, "/notes/1"},
	}

	for _, rt := range routes {
		status, body := env.do(t, rt.method, rt.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", rt.method, rt.path, status)
			continue
		}
		if msg := decode[map[string]string](t, body)["error"]; msg != "Missing or invalid Authorization header" {
			t.Errorf("%s %s: error = %q", rt.method, rt.path, msg)
		}
	}
}

func TestAPI_NotesRoundTrip(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")

	status, body := env.do(t, http.MethodPost, "/notes", token, map[string]string{"title": "T1", "content": "C1"})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", status, body)
	}
	created := decode[noteJSON](t, body)
	if created.Title != "T1" || created.Content != "C1" || created.ID == 0 {
		t.Errorf("created = %+v", created)
	}

	status, body = env.do(t, http.MethodGet, "/notes", token, nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	list := decode[[]noteJSON](t, body)
	if len(list) != 1 || list[0] != created {
		t.Errorf("list = %+v, want [%+v]", list, created)
	}

	status, body = env.do(t, http.MethodPatch, fmt.Sprintf("/notes/%d", created.ID), token, map[string]string{"content": "C2"})
	if status != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", status, body)
	}
	if patched := decode[noteJSON](t, body); patched.Title != "T1" || patched.Content != "C2" {
		t.Errorf("patched = %+v", patched)
	}

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/notes/%d", created.ID), token, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", status)
	}

	status, body = env.do(t, http.MethodGet, "/notes", token, nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("list after delete = %d %s, want 200 []", status, body)
	}
}

func TestAPI_CreateNoteValidation(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")

	bodies := []any{
		map[string]string{"title": "T"},
		map[string]string{"content": "C"},
		map[string]string{"title": "", "content": "C"},
		`not json`,
	}

	for i, body := range bodies {
		status, resp := env.do(t, http.MethodPost, "/notes", token, body)
		if status != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, status)
			continue
		}
		if msg := decode[map[string]string](t, resp)["error"]; msg != "title and content required" {
			t.Errorf("case %d: error = %q", i, msg)
		}
	}

	for _, body := range []map[string]string{
		{"title": "T\x00", "content": "C"},
		{"title": "T", "content": "C\x00"},
	} {
		status, resp := env.do(t, http.MethodPost, "/notes", token, body)
		if status != http.StatusBadRequest {
			t.Errorf("nul body %q: status = %d, want 400", body, status)
			continue
		}
		if msg := decode[map[string]string](t, resp)["error"]; msg != service.ErrNulCharacter.Error() {
			t.Errorf("nul body %q: error = %q", body, msg)
		}
	}

	if env.store.NoteCount() != 0 {
		t.Errorf("invalid requests created %d notes", env.store.NoteCount())
	}
}

func TestAPI_Ownership(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	alice := env.signupAndLogin(t, "alice")
	bob := env.signupAndLogin(t, "bob")

	_, body := env.do(t, http.MethodPost, "/notes", alice, map[string]string{"title": "A", "content": "secret"})
	note := decode[noteJSON](t, body)
	path := fmt.Sprintf("/notes/%d", note.ID)

	status, body := env.do(t, http.MethodPatch, path, bob, map[string]string{"title": "pwned"})
	if status != http.StatusForbidden {
		t.Errorf("bob patch status = %d, want 403", status)
	}
	if msg := decode[map[string]string](t, body)["error"]; msg != "forbidden" {
		t.Errorf("bob patch error = %q", msg)
	}

	invalid := []map[string]string{
		{"title": ""},
		{"content": ""},
		{"title": strings.Repeat("x", service.MaxTitleLength+1)},
	}
	for _, patch := range invalid {
		status, _ = env.do(t, http.MethodPatch, path, bob, patch)
		if status != http.StatusForbidden {
			t.Errorf("bob invalid patch %v status = %d, want 403", patch, status)
		}
	}

	status, _ = env.do(t, http.MethodDelete, path, bob, nil)
	if status != http.StatusForbidden {
		t.Errorf("bob delete status = %d, want 403", status)
	}

	status, body = env.do(t, http.MethodGet, "/notes", bob, nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("bob list = %d %s, want 200 []", status, body)
	}

	_, body = env.do(t, http.MethodGet, "/notes", alice, nil)
	list := decode[[]noteJSON](t, body)
	if len(list) != 1 || list[0].Title != "A" {
		t.Errorf("alice's note changed: %+v", list)
	}
}

func TestAPI_MissingAndInvalidNoteIDs(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")

	paths := []string{"/notes/999", "/notes/abc", "/notes/0"}
	for _, path := range paths {
		status, _ := env.do(t, http.MethodPatch, path, token, map[string]string{"title": "x"})
		if status != http.StatusNotFound {
			t.Errorf("PATCH %s: status = %d, want 404", path, status)
		}
		status, _ = env.do(t, http.MethodPatch, path, token, map[string]string{"title": ""})
		if status != http.StatusNotFound {
			t.Errorf("PATCH %s with empty title: status = %d, want 404", path, status)
		}
		status, _ = env.do(t, http.MethodDelete, path, token, nil)
		if status != http.StatusNotFound {
			t.Errorf("DELETE %s: status = %d, want 404", path, status)
		}
	}
}

func TestAPI_Pagination(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")

	for i := 1; i <= 3; i++ {
		env.do(t, http.MethodPost, "/notes", token, map[string]string{"title": fmt.Sprintf("T%d", i), "content": "c"})
	}

	type envelope struct {
		Items   []noteJSON `json:"items"`
		Page    int        `json:"page"`
		PerPage int        `json:"per_page"`
		Pages   int        `json:"pages"`
		Total   int64      `json:"total"`
	}

	_, body := env.do(t, http.MethodGet, "/notes?page=2&per_page=2", token, nil)
	page := decode[envelope](t, body)
	if len(page.Items) != 1 || page.Items[0].Title != "T3" {
		t.Errorf("page 2 items = %+v, want [T3]", page.Items)
	}
	if page.Page != 2 || page.PerPage != 2 || page.Pages != 2 || page.Total != 3 {
		t.Errorf("envelope = %+v", page)
	}

	_, body = env.do(t, http.MethodGet, "/notes?page=9", token, nil)
	page = decode[envelope](t, body)
	if page.Items == nil || len(page.Items) != 0 || page.Total != 3 || page.PerPage != 10 {
		t.Errorf("past-end envelope = %s", body)
	}

	status, body := env.do(t, http.MethodGet, "/notes?page=9223372036854775807&per_page=100", token, nil)
	if status != http.StatusOK {
		t.Fatalf("huge page status = %d, want 200: %s", status, body)
	}
	page = decode[envelope](t, body)
	if page.Items == nil || len(page.Items) != 0 || page.Total != 3 || page.Page != model.MaxPage {
		t.Errorf("huge page envelope = %s", body)
	}

	_, body = env.do(t, http.MethodGet, "/notes?page=abc", token, nil)
	if list := decode[[]noteJSON](t, body); len(list) != 3 {
		t.Errorf("non-integer page should return plain list, got %s", body)
	}
}

func TestAPI_CreateNoteAfterOwnerRemoved(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")
	ctx := context.Background()

	// Populates the identity cache.
	if status, _ := env.do(t, http.MethodGet, "/me", token, nil); status != http.StatusOK {
		t.Fatalf("me status = %d, want 200", status)
	}

	user, err := env.store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if err := env.store.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	status, body := env.do(t, http.MethodPost, "/notes", token, map[string]string{"title": "T", "content": "C"})
	if status != http.StatusUnauthorized {
		t.Fatalf("create status = %d, want 401: %s", status, body)
	}
	if msg := decode[map[string]string](t, body)["error"]; msg != "User not found" {
		t.Errorf("create error = %q", msg)
	}
	if env.store.NoteCount() != 0 {
		t.Errorf("note created for removed user")
	}
}

func TestAPI_DeleteAccount(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	token := env.signupAndLogin(t, "alice")

	env.do(t, http.MethodPost, "/notes", token, map[string]string{"title": "T", "content": "C"})

	status, _ := env.do(t, http.MethodDelete, "/me", token, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete me status = %d, want 204", status)
	}
	if env.store.NoteCount() != 0 {
		t.Errorf("notes survived account deletion: %d", env.store.NoteCount())
	}

	status, body := env.do(t, http.MethodGet, "/me", token, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("me after delete status = %d, want 401", status)
	}
	if msg := decode[map[string]string](t, body)["error"]; msg != "User not found" {
		t.Errorf("me after delete error = %q", msg)
	}
}

func TestAPI_UnknownRouteAndMethod(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/nope", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", status)
	}
	if msg := decode[map[string]string](t, body)["error"]; msg != "resource not found" {
		t.Errorf("unknown route error = %q", msg)
	}

	status, _ = env.do(t, http.MethodPut, "/health", "", nil)
	if status != http.StatusMethodNotAllowed {
		t.Errorf("PUT /health status = %d, want 405", status)
	}
}

func TestAPI_Metrics(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)
	env.signupAndLogin(t, "alice")
	env.do(t, http.MethodGet, "/me", "", nil)

	status, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}

	for _, want := range []string{
		"notekeep_signups_total 1",
		`notekeep_logins_total{result="success"} 1`,
		`notekeep_auth_failures_total{reason="missing_token"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAPI_OversizedBody(t *testing.T) {
	t.Parallel()
	env := newAPIEnv(t)

	big := fmt.Sprintf(`{"username":"alice","password":"%s"}`, strings.Repeat("x", 4<<10))
	status, _ := env.do(t, http.MethodPost, "/signup", "", big)
	if status != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", status)
	}
}
