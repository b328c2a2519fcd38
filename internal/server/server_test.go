package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reviewbase/internal/app"
	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
	"reviewbase/pkg/store"
)

type memConfirmations struct {
	codes map[string]string
}

func (m *memConfirmations) Issue(userID string) (string, error) {
	m.codes[userID] = "654321"
	return m.codes[userID], nil
}

func (m *memConfirmations) Verify(userID, code string) error {
	if stored, ok := m.codes[userID]; ok && stored == code {
		return nil
	}
	return store.ErrCodeInvalid
}

type memSessions struct {
	tokens map[string]string
}

func (m *memSessions) NewSession(userID string) (string, error) {
	token := "token-" + userID
	m.tokens[token] = userID
	return token, nil
}

func (m *memSessions) GetUserIDByToken(token string) (string, bool, error) {
	userID, ok := m.tokens[token]
	return userID, ok, nil
}

type captureMailer struct {
	lastCode string
}

func (m *captureMailer) SendConfirmationCode(_ context.Context, _, _, code string) error {
	m.lastCode = code
	return nil
}

type env struct {
	srv           *httptest.Server
	store         *store.MemoryStore
	sessions      *memSessions
	mailer        *captureMailer
	signupLimiter Limiter
}

type envOption func(*env)

func withSignupLimiter(l Limiter) envOption {
	return func(e *env) { e.signupLimiter = l }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	e := &env{
		store:    store.NewMemoryStore(),
		sessions: &memSessions{tokens: map[string]string{}},
		mailer:   &captureMailer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	a := app.New(app.Config{
		Store:         e.store,
		Confirmations: &memConfirmations{codes: map[string]string{}},
		Sessions:      e.sessions,
		Mailer:        e.mailer,
	})
	s := New(Config{App: a, SignupLimiter: e.signupLimiter})
	e.srv = httptest.NewServer(s.Handler())
	t.Cleanup(e.srv.Close)
	return e
}

// seedUser puts an active account straight into the store and returns a
// token for it, bypassing the signup flow.
func (e *env) seedUser(t *testing.T, username string, role domain.UserRole) string {
	t.Helper()
	now := time.Now()
	user := domain.User{
		ID:        util.NewID(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.SaveUser(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := e.sessions.NewSession(user.ID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, want, raw)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/v1/health", "", nil)
	wantStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id header")
	}
}

func TestTrailingSlashAccepted(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/v1/titles/", "", nil)
	wantStatus(t, resp, http.StatusOK)
}

func TestSignUpAndTokenFlow(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	wantStatus(t, resp, http.StatusOK)
	if e.mailer.lastCode == "" {
		t.Fatal("no confirmation code mailed")
	}

	// Unknown username is a 404, not a validation error.
	resp = e.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{
		"username":         "ghost",
		"confirmationCode": e.mailer.lastCode,
	})
	wantStatus(t, resp, http.StatusNotFound)

	// A wrong code is refused in plain text.
	resp = e.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{
		"username":         "alice",
		"confirmationCode": "000000",
	})
	wantStatus(t, resp, http.StatusBadRequest)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q, want text/plain", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "invalid confirmation code") {
		t.Fatalf("body = %q", raw)
	}

	resp = e.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{
		"username":         "alice",
		"confirmationCode": e.mailer.lastCode,
	})
	wantStatus(t, resp, http.StatusOK)
	token, _ := decodeBody(t, resp)["token"].(string)
	if token == "" {
		t.Fatal("empty token")
	}

	resp = e.do(t, http.MethodGet, "/v1/users/me", token, nil)
	wantStatus(t, resp, http.StatusOK)
	if got := decodeBody(t, resp)["username"]; got != "alice" {
		t.Fatalf("username = %v", got)
	}
}

func TestAnonymousAccess(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/v1/titles", "", nil)
	wantStatus(t, resp, http.StatusOK)

	resp = e.do(t, http.MethodPost, "/v1/categories", "", map[string]string{
		"name": "Movies", "slug": "movies",
	})
	wantStatus(t, resp, http.StatusUnauthorized)

	userToken := e.seedUser(t, "alice", domain.RoleUser)
	resp = e.do(t, http.MethodPost, "/v1/categories", userToken, map[string]string{
		"name": "Movies", "slug": "movies",
	})
	wantStatus(t, resp, http.StatusForbidden)

	resp = e.do(t, http.MethodGet, "/v1/titles", "garbage-token", nil)
	wantStatus(t, resp, http.StatusOK) // reads ignore the header entirely
}

func TestCatalogOverHTTP(t *testing.T) {
	e := newEnv(t)
	admin := e.seedUser(t, "root", domain.RoleAdmin)

	resp := e.do(t, http.MethodPost, "/v1/categories", admin, map[string]string{
		"name": "Movies", "slug": "movies",
	})
	wantStatus(t, resp, http.StatusCreated)

	resp = e.do(t, http.MethodPost, "/v1/genres", admin, map[string]string{
		"name": "Drama", "slug": "drama",
	})
	wantStatus(t, resp, http.StatusCreated)

	resp = e.do(t, http.MethodPost, "/v1/titles", admin, map[string]any{
		"name":     "Heat",
		"year":     1995,
		"category": "movies",
		"genre":    []string{"drama"},
	})
	wantStatus(t, resp, http.StatusCreated)
	titleID, _ := decodeBody(t, resp)["id"].(string)
	if titleID == "" {
		t.Fatal("missing title id")
	}

	resp = e.do(t, http.MethodGet, "/v1/titles?genre=drama", "", nil)
	wantStatus(t, resp, http.StatusOK)
	if count := decodeBody(t, resp)["count"]; count != float64(1) {
		t.Fatalf("count = %v, want 1", count)
	}

	// Deleting the category keeps the title, with category cleared.
	resp = e.do(t, http.MethodDelete, "/v1/categories/movies", admin, nil)
	wantStatus(t, resp, http.StatusNoContent)
	resp = e.do(t, http.MethodGet, "/v1/titles/"+titleID, "", nil)
	wantStatus(t, resp, http.StatusOK)
	if category := decodeBody(t, resp)["category"]; category != nil {
		t.Fatalf("category = %v, want null", category)
	}

	resp = e.do(t, http.MethodDelete, "/v1/genres/ghost", admin, nil)
	wantStatus(t, resp, http.StatusNotFound)
}

func TestReviewFlowOverHTTP(t *testing.T) {
	e := newEnv(t)
	admin := e.seedUser(t, "root", domain.RoleAdmin)
	alice := e.seedUser(t, "alice", domain.RoleUser)
	bob := e.seedUser(t, "bob", domain.RoleUser)
	moderator := e.seedUser(t, "mod", domain.RoleModerator)

	e.do(t, http.MethodPost, "/v1/categories", admin, map[string]string{"name": "Movies", "slug": "movies"})
	resp := e.do(t, http.MethodPost, "/v1/titles", admin, map[string]any{
		"name": "Heat", "year": 1995, "category": "movies",
	})
	wantStatus(t, resp, http.StatusCreated)
	titleID, _ := decodeBody(t, resp)["id"].(string)

	base := "/v1/titles/" + titleID + "/reviews"
	resp = e.do(t, http.MethodPost, base, alice, map[string]any{"text": "tense", "score": 4})
	wantStatus(t, resp, http.StatusCreated)
	reviewID, _ := decodeBody(t, resp)["id"].(string)
	if author := func() any {
		r := e.do(t, http.MethodGet, base+"/"+reviewID, "", nil)
		return decodeBody(t, r)["author"]
	}(); author != "alice" {
		t.Fatalf("author = %v", author)
	}

	// One review per author.
	resp = e.do(t, http.MethodPost, base, alice, map[string]any{"text": "again", "score": 9})
	wantStatus(t, resp, http.StatusBadRequest)

	// Score outside 1..10.
	resp = e.do(t, http.MethodPost, base, bob, map[string]any{"text": "meh", "score": 11})
	wantStatus(t, resp, http.StatusBadRequest)

	resp = e.do(t, http.MethodPost, base, bob, map[string]any{"text": "great", "score": 8})
	wantStatus(t, resp, http.StatusCreated)

	// Rating is the rounded average: (4+8)/2 = 6.
	resp = e.do(t, http.MethodGet, "/v1/titles/"+titleID, "", nil)
	wantStatus(t, resp, http.StatusOK)
	if rating := decodeBody(t, resp)["rating"]; rating != float64(6) {
		t.Fatalf("rating = %v, want 6", rating)
	}

	// Comments hang off a review; strangers cannot edit them.
	comments := base + "/" + reviewID + "/comments"
	resp = e.do(t, http.MethodPost, comments, bob, map[string]string{"text": "agreed"})
	wantStatus(t, resp, http.StatusCreated)
	commentID, _ := decodeBody(t, resp)["id"].(string)
	resp = e.do(t, http.MethodPatch, comments+"/"+commentID, alice, map[string]string{"text": "hijack"})
	wantStatus(t, resp, http.StatusForbidden)

	// A moderator may remove someone else's review.
	resp = e.do(t, http.MethodDelete, base+"/"+reviewID, moderator, nil)
	wantStatus(t, resp, http.StatusNoContent)
	resp = e.do(t, http.MethodGet, base+"/"+reviewID, "", nil)
	wantStatus(t, resp, http.StatusNotFound)
}

func TestUserDirectoryOverHTTP(t *testing.T) {
	e := newEnv(t)
	admin := e.seedUser(t, "root", domain.RoleAdmin)
	user := e.seedUser(t, "alice", domain.RoleUser)

	resp := e.do(t, http.MethodGet, "/v1/users", user, nil)
	wantStatus(t, resp, http.StatusForbidden)

	resp = e.do(t, http.MethodPost, "/v1/users", admin, map[string]string{
		"username": "carol",
		"email":    "carol@example.com",
		"role":     "moderator",
	})
	wantStatus(t, resp, http.StatusCreated)

	resp = e.do(t, http.MethodGet, "/v1/users/carol", admin, nil)
	wantStatus(t, resp, http.StatusOK)
	if role := decodeBody(t, resp)["role"]; role != "moderator" {
		t.Fatalf("role = %v", role)
	}

	// Self-service role escalation is refused.
	resp = e.do(t, http.MethodPatch, "/v1/users/me", user, map[string]string{"role": "admin"})
	wantStatus(t, resp, http.StatusForbidden)

	resp = e.do(t, http.MethodDelete, "/v1/users/carol", admin, nil)
	wantStatus(t, resp, http.StatusNoContent)
	resp = e.do(t, http.MethodGet, "/v1/users/carol", admin, nil)
	wantStatus(t, resp, http.StatusNotFound)
}

type countingLimiter struct {
	remaining int
}

func (l *countingLimiter) Allow(string) bool {
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return true
}

func TestSignupRateLimit(t *testing.T) {
	e := newEnv(t, withSignupLimiter(&countingLimiter{remaining: 2}))

	for i := 0; i < 2; i++ {
		resp := e.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
		})
		wantStatus(t, resp, http.StatusOK)
	}
	resp := e.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	wantStatus(t, resp, http.StatusTooManyRequests)
}

func TestMalformedJSON(t *testing.T) {
	e := newEnv(t)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/v1/auth/signup", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}
