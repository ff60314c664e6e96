package auth

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/fragmede/authdesk/internal/cache"
)

// Store persists sessions between runs. *cache.DB implements it.
type Store interface {
	SaveSession(origin string, rec cache.SessionRecord) error
	LoadSession(origin string) (*cache.SessionRecord, error)
	DeleteSession(origin string) error
}

// Session manages the client-side auth state for one API origin: the cookie
// jar carrying the server's session credential, the CSRF token store, and
// the username of the last successful login.
//
// Session implements http.CookieJar so the jar can be swapped on Clear
// without rebuilding the http.Client that uses it.
type Session struct {
	base   *url.URL
	origin string
	store  Store
	tokens TokenStore

	mu       sync.RWMutex
	jar      *cookiejar.Jar
	username string
}

// NewSession creates a session for the API rooted at baseURL. store may be
// nil, in which case Save, Load and Clear only touch memory.
func NewSession(baseURL string, store Store) (*Session, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	jar, err := newJar()
	if err != nil {
		return nil, err
	}
	return &Session{
		base:   u,
		origin: u.Scheme + "://" + u.Host,
		store:  store,
		jar:    jar,
	}, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return jar, nil
}

// Tokens returns the CSRF token store owned by this session.
func (s *Session) Tokens() *TokenStore {
	return &s.tokens
}

// BaseURL returns the API root every endpoint path is joined to.
func (s *Session) BaseURL() string {
	return strings.TrimRight(s.base.String(), "/")
}

// Origin returns scheme://host of the API.
func (s *Session) Origin() string {
	return s.origin
}

// SetCookies implements http.CookieJar.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	return jar.Cookies(u)
}

// HasCookies reports whether any cookie is held for the API.
func (s *Session) HasCookies() bool {
	return len(s.Cookies(s.base)) > 0
}

// Username returns the user of the last successful login or restore.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetUsername records the logged-in user.
func (s *Session) SetUsername(username string) {
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
}

// Save persists the jar cookies and username.
func (s *Session) Save() error {
	if s.store == nil {
		return nil
	}
	rec := cache.SessionRecord{
		Username: s.Username(),
		Cookies:  s.Cookies(s.base),
	}
	if err := s.store.SaveSession(s.origin, rec); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load restores a persisted session into the jar. It does not check that
// the session is still accepted by the server; callers follow up with a
// check-auth. Returns false when nothing was stored.
func (s *Session) Load() (bool, error) {
	if s.store == nil {
		return false, nil
	}
	rec, err := s.store.LoadSession(s.origin)
	if err != nil {
		return false, fmt.Errorf("loading session: %w", err)
	}
	if rec == nil || len(rec.Cookies) == 0 {
		return false, nil
	}

	cookies := make([]*http.Cookie, len(rec.Cookies))
	for i, c := range rec.Cookies {
		cookies[i] = &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"}
	}
	s.SetCookies(s.base, cookies)
	s.SetUsername(rec.Username)
	return true, nil
}

// Clear drops every local credential artifact: jar cookies, the persisted
// session and the username. The CSRF token is kept.
func (s *Session) Clear() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jar = jar
	s.username = ""
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteSession(s.origin); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
