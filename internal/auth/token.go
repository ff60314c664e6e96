package auth

import "sync"

// TokenStore holds the CSRF token for one running client. The zero value is
// an empty store ready for use. Nothing is persisted across restarts.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// Token returns the cached token, or "" if none has been fetched.
func (t *TokenStore) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Set overwrites the cached token.
func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}
