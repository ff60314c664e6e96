package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal auth API: one user and one live session id. The
// refresh endpoint needs the CSRF header and the refresh cookie, and issues
// a new session id.
type fakeServer struct {
	srv *httptest.Server

	mu            sync.Mutex
	session       string
	generation    int
	refreshTokens []string // X-CSRF-Token seen by /refresh
}

// expire invalidates the session id the client holds.
func (f *fakeServer) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.session = "s" + strconv.Itoa(f.generation)
}

func (f *fakeServer) seenRefreshTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshTokens...)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	authed := func(r *http.Request) bool {
		c, err := r.Cookie("session")
		f.mu.Lock()
		defer f.mu.Unlock()
		return err == nil && f.session != "" && c.Value == f.session
	}
	newSession := func(w http.ResponseWriter) {
		f.mu.Lock()
		f.generation++
		f.session = "s" + strconv.Itoa(f.generation)
		id := f.session
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "session", Value: id, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "r1", Path: "/"})
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/get_csrf_token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"csrf_token": "abc"})
		})
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != "username=alice&password=pw" || r.Header.Get("X-CSRF-Token") != "abc" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
				return
			}
			newSession(w)
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		})
		r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"errors": map[string]string{"email": "invalid"},
			})
		})
		r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-CSRF-Token")
			f.mu.Lock()
			f.refreshTokens = append(f.refreshTokens, token)
			f.mu.Unlock()
			if token != "abc" {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF token missing"})
				return
			}
			if c, err := r.Cookie("refresh"); err != nil || c.Value != "r1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "no refresh token"})
				return
			}
			newSession(w)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
		})
		r.Get("/check_auth", func(w http.ResponseWriter, r *http.Request) {
			if !authed(r) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
		})
		r.Get("/example", func(w http.ResponseWriter, r *http.Request) {
			if !authed(r) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"message":   "hello",
				"user_info": map[string]interface{}{"username": "alice", "bank_balance": 10.5},
			})
		})
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

// run executes the CLI with its own cache dir shared across calls in a
// test.
func run(t *testing.T, base string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--base-url", base, "--no-color"))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestLoginCheckExample(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	f := newFakeServer(t)
	base := f.srv.URL + "/api"

	_, _, err := run(t, base, "check")
	assert.Error(t, err)

	out, _, err := run(t, base, "login", "-u", "alice", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	// A new process picks the session up from the cache.
	out, _, err = run(t, base, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated as alice")

	out, _, err = run(t, base, "example", "-o", "json")
	require.NoError(t, err)
	var ex struct {
		Message  string `json:"message"`
		UserInfo struct {
			Username    string  `json:"username"`
			BankBalance float64 `json:"bank_balance"`
		} `json:"user_info"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ex))
	assert.Equal(t, "hello", ex.Message)
	assert.Equal(t, "alice", ex.UserInfo.Username)
	assert.InDelta(t, 10.5, ex.UserInfo.BankBalance, 0.001)
}

func TestRestoredSessionRefreshesWithToken(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	f := newFakeServer(t)
	base := f.srv.URL + "/api"

	_, _, err := run(t, base, "login", "-u", "alice", "-p", "pw")
	require.NoError(t, err)

	// Each process starts with a stale access cookie and must refresh.
	f.expire()
	out, _, err := run(t, base, "example", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "alice"`)
	assert.Equal(t, []string{"abc"}, f.seenRefreshTokens())

	f.expire()
	out, _, err = run(t, base, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated as alice")
	assert.Equal(t, []string{"abc", "abc"}, f.seenRefreshTokens())
}

func TestLoginBadPassword(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	f := newFakeServer(t)

	_, _, err := run(t, f.srv.URL+"/api", "login", "-u", "alice", "-p", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect username or password")
}

func TestRegisterFieldErrors(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	f := newFakeServer(t)

	_, stderr, err := run(t, f.srv.URL+"/api", "register",
		"--username", "bob", "--password", "pw", "--email", "bad", "--dob", "1990-01-01")
	require.Error(t, err)
	assert.Contains(t, stderr, "email: invalid")
}

func TestRegisterMissingFlags(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())

	_, _, err := run(t, "http://127.0.0.1:1/api", "register", "--username", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dob, --email, --password")
}

func TestTokenYAML(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	f := newFakeServer(t)

	out, _, err := run(t, f.srv.URL+"/api", "token", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "csrf_token: abc\n", out)
}

func TestUnknownOutputFormat(t *testing.T) {
	t.Setenv("AUTHDESK_CACHE_DIR", t.TempDir())
	_, _, err := run(t, "http://127.0.0.1:1/api", "token", "-o", "xml")
	require.Error(t, err)
}
