package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/fragmede/authdesk/internal/render"
)

// Kind classifies a failed call so callers can route it without string
// matching.
type Kind int

const (
	// KindRequest is any non-2xx response not covered below.
	KindRequest Kind = iota
	// KindNetwork means no response was received. Never retried.
	KindNetwork
	// KindTokenFetch means the CSRF token could not be obtained.
	KindTokenFetch
	// KindAuthExpired means the session could not be recovered and the
	// user must log in again.
	KindAuthExpired
	// KindValidation carries per-field errors from registration.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNetwork:
		return "network"
	case KindTokenFetch:
		return "token_fetch"
	case KindAuthExpired:
		return "auth_expired"
	case KindValidation:
		return "validation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	msgConnection   = "could not connect to the server"
	msgAuthExpired  = "session expired, please log in again"
	msgRegistration = "registration failed"
	msgValidation   = "invalid registration data"
)

// Error is the failure half of every client call.
type Error struct {
	Kind    Kind
	Status  int               // HTTP status, 0 when no response arrived
	Message string            // server detail when present
	Fields  map[string]string // field errors, KindValidation only
	Err     error             // underlying transport error, if any

	sentinel bool
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrAuthExpired = &Error{Kind: KindAuthExpired, Message: msgAuthExpired, sentinel: true}
	ErrNetwork     = &Error{Kind: KindNetwork, Message: msgConnection, sentinel: true}
	ErrValidation  = &Error{Kind: KindValidation, Message: msgValidation, sentinel: true}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = e.Kind.String()
	}

	var sb strings.Builder
	sb.WriteString(msg)
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.Status)
	}
	if len(e.Fields) > 0 {
		fields := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for i, f := range fields {
			if i == 0 {
				sb.WriteString(": ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(f + " " + e.Fields[f])
		}
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.sentinel && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindRequest when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRequest
}

// FieldErrors returns the per-field messages carried by err, or nil.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Message returns the text a user should see for err: the server's
// detail when there is one, else fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: msgConnection, Err: err}
}

// responseError builds the error for a non-2xx response, keeping whatever
// detail and field errors the server sent. Message stays empty when the
// server gave no detail.
func responseError(resp *Response) *Error {
	e := &Error{Kind: KindRequest, Status: resp.Status}

	var payload errorPayload
	if err := json.Unmarshal(resp.Body, &payload); err == nil {
		e.Message = detailText(payload.Detail)
		if len(payload.Errors) > 0 {
			e.Fields = make(map[string]string, len(payload.Errors))
			for field, raw := range payload.Errors {
				e.Fields[field] = detailText(raw)
			}
		}
	} else if text := render.PlainText(string(resp.Body)); text != "" {
		e.Message = render.Truncate(text, 200)
	}

	return e
}

// detailText flattens a JSON detail value: strings as-is, lists of strings
// joined, validation-error objects by their "msg", anything else verbatim.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if t := detailText(item); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "; ")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg, ok := obj["msg"]; ok {
			return detailText(msg)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+detailText(obj[k]))
		}
		return strings.Join(parts, "; ")
	}

	return string(raw)
}
