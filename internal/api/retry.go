package api

import "net/http"

// State is a step of the per-request auth recovery machine:
//
//	INITIAL -> SENT -> SUCCESS
//	               -> FAILED_OTHER
//	               -> FAILED_401_FIRST -> REFRESHING -> REPLAYED
//	                                                 -> REFRESH_FAILED
type State int

const (
	StateInitial State = iota
	StateSent
	StateSuccess
	StateFailedOther
	StateFailed401First
	StateRefreshing
	StateReplayed
	StateRefreshFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateSent:
		return "SENT"
	case StateSuccess:
		return "SUCCESS"
	case StateFailedOther:
		return "FAILED_OTHER"
	case StateFailed401First:
		return "FAILED_401_FIRST"
	case StateRefreshing:
		return "REFRESHING"
	case StateReplayed:
		return "REPLAYED"
	case StateRefreshFailed:
		return "REFRESH_FAILED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateFailedOther, StateReplayed, StateRefreshFailed:
		return true
	}
	return false
}

// Action is what the response phase does with a completed exchange.
type Action int

const (
	// ActionReturn hands the response to the caller.
	ActionReturn Action = iota
	// ActionRecover refreshes the session and replays the request.
	ActionRecover
	// ActionFail propagates the failure unchanged.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionReturn:
		return "return"
	case ActionRecover:
		return "recover"
	case ActionFail:
		return "fail"
	}
	return "unknown"
}

// Decide maps a response status and the request's retry flag to an action.
// Only a first 401 is recoverable.
func Decide(status int, retried bool) Action {
	switch {
	case status >= 200 && status < 300:
		return ActionReturn
	case status == http.StatusUnauthorized && !retried:
		return ActionRecover
	default:
		return ActionFail
	}
}
