package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fragmede/authdesk/internal/auth"
)

// fakeAPI is an in-process stand-in for the auth server. Protected routes
// accept the request only when the "session" cookie matches the current
// session id; expire rotates that id so the client's cookie goes stale.
type fakeAPI struct {
	srv  *httptest.Server
	base string

	mu          sync.Mutex
	token       string
	sessionID   string
	generation  int
	counts      map[string]int
	tokens      map[string][]string // X-CSRF-Token seen, per path
	loginBody   string
	loginType   string
	refreshFail bool
	rejectAll   bool // protected routes 401 even with a valid session

	registerStatus int
	registerBody   string
	registerReject int // leading /register calls answered with 401
	registerSeen   []recorded

	// refreshGate, when set, blocks /refresh until it is closed.
	refreshGate chan struct{}
}

// recorded is what a handler received.
type recorded struct {
	Body        string
	ContentType string
	Token       string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		token:          "abc",
		counts:         make(map[string]int),
		tokens:         make(map[string][]string),
		registerStatus: http.StatusCreated,
		registerBody:   `{"message":"User created successfully"}`,
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Route("/api", func(r chi.Router) {
		r.Get(PathCSRFToken, f.handleToken)
		r.Post(PathLogin, f.handleLogin)
		r.Post(PathRegister, f.handleRegister)
		r.Post(PathRefresh, f.handleRefresh)
		r.Get(PathCheckAuth, f.handleCheckAuth)
		r.Get(PathExample, f.handleExample)
	})

	f.srv = httptest.NewServer(r)
	f.base = f.srv.URL + "/api"
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		f.mu.Lock()
		f.counts[path]++
		f.tokens[path] = append(f.tokens[path], r.Header.Get(HeaderCSRFToken))
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

func (f *fakeAPI) seenTokens(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens[path]...)
}

// expire invalidates the session cookie the client currently holds.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.sessionID = "sess-" + strconv.Itoa(f.generation)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	c, err := r.Cookie("session")
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.rejectAll && f.sessionID != "" && c.Value == f.sessionID
}

func (f *fakeAPI) setSession(w http.ResponseWriter) {
	f.mu.Lock()
	if f.sessionID == "" {
		f.generation++
		f.sessionID = "sess-" + strconv.Itoa(f.generation)
	}
	id := f.sessionID
	f.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "session", Value: id, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "r-" + id, Path: "/", HttpOnly: true})
}

func (f *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	tok := f.token
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": tok})
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.loginBody = string(body)
	f.loginType = r.Header.Get("Content-Type")
	f.mu.Unlock()

	if string(body) != "username=alice&password=pw" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
		return
	}
	f.setSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

func (f *fakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.registerSeen = append(f.registerSeen, recorded{
		Body:        string(data),
		ContentType: r.Header.Get("Content-Type"),
		Token:       r.Header.Get(HeaderCSRFToken),
	})
	status, body := f.registerStatus, f.registerBody
	reject := f.registerReject > 0
	if reject {
		f.registerReject--
	}
	f.mu.Unlock()

	if reject {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	gate, fail := f.refreshGate, f.refreshFail
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if c, err := r.Cookie("refresh"); err != nil || !strings.HasPrefix(c.Value, "r-") {
		fail = true
	}
	if fail {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Refresh token expired"})
		return
	}
	f.setSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (f *fakeAPI) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (f *fakeAPI) handleExample(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "This is a protected example endpoint",
		"user_info": map[string]interface{}{
			"username":     "alice",
			"bank_balance": 1234.5,
		},
	})
}

func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	s, err := auth.NewSession(f.base, nil)
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	return NewClient(s, opts...)
}

// loggedIn returns a client holding a valid session and the token "abc".
func loggedIn(t *testing.T, f *fakeAPI, opts ...Option) *Client {
	t.Helper()
	c := newTestClient(t, f, opts...)
	_, err := c.Login(t.Context(), "alice", "pw")
	require.NoError(t, err)
	return c
}
