package messages

import "github.com/fragmede/authdesk/internal/api"

// View transition messages.
type (
	OpenLoginMsg    struct{}
	OpenRegisterMsg struct{}
	OpenExampleMsg  struct{}
	GoBackMsg       struct{}
)

// Data messages.
type (
	TokenFetchedMsg struct {
		Token string
	}

	SessionRestoredMsg struct {
		Username string
	}

	LoginResultMsg struct {
		Username string
		Err      error
	}

	RegisterResultMsg struct {
		Username string
		Err      error
	}

	// AuthStateMsg carries the result of a check-auth, from the app itself
	// or from the background session watcher.
	AuthStateMsg struct {
		Authenticated bool
	}

	// AuthExpiredMsg means the session could not be recovered and the login
	// screen must be shown.
	AuthExpiredMsg struct{}

	ExampleLoadedMsg struct {
		Example *api.ExampleResponse
		Err     error
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
