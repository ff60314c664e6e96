package example

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/cache"
	"github.com/fragmede/authdesk/internal/ui/messages"
)

func TestShowsExample(t *testing.T) {
	m := New(nil, nil, "alice", time.Minute)
	m.loading = true

	m, cmd := m.Update(loadedMsg{Overview: &api.Overview{
		Authenticated: true,
		Example: &api.ExampleResponse{
			Message:  "hello there",
			UserInfo: api.UserInfo{Username: "alice", BankBalance: 42},
		},
	}})
	require.NotNil(t, cmd)
	assert.False(t, m.Loading())

	view := m.View()
	assert.Contains(t, view, "hello there")
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "42.00")
	assert.NotContains(t, view, "Offline")
}

func TestOfflineShowsStaleProfile(t *testing.T) {
	m := New(nil, nil, "alice", time.Minute)
	m.loading = true

	stale := &cache.Profile{
		Username:    "alice",
		Message:     "cached message",
		BankBalance: 7,
		FetchedAt:   time.Now().Add(-2 * time.Hour),
	}
	netErr := &api.Error{Kind: api.KindNetwork, Message: "could not connect to the server"}
	m, cmd := m.Update(loadedMsg{Stale: stale, Err: netErr})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ExampleLoadedMsg{Err: netErr}, cmd())

	view := m.View()
	assert.Contains(t, view, "cached message")
	assert.Contains(t, view, "Offline, showing data from 2h ago")
	assert.Contains(t, view, "could not connect to the server")
}

func TestAuthErrorClearsExample(t *testing.T) {
	m := New(nil, nil, "alice", time.Minute)
	m.example = &api.ExampleResponse{Message: "old"}

	m, _ = m.Update(loadedMsg{Err: &api.Error{Kind: api.KindAuthExpired, Status: 401, Message: "session expired, please log in again"}})
	assert.Nil(t, m.example)
	assert.Contains(t, m.View(), "session expired")
}
