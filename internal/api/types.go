package api

import (
	"encoding/json"
	"net/http"
)

// Endpoint paths, relative to the configured base URL.
const (
	PathCSRFToken   = "/get_csrf_token"
	PathRegister    = "/register"
	PathLogin       = "/login"
	PathRefresh     = "/refresh"
	PathCheckAuth   = "/check_auth"
	PathExample     = "/example"
	PathGoogleLogin = "/login/google"
)

// Header names the client sets on outgoing requests.
const (
	HeaderCSRFToken = "X-CSRF-Token"
	HeaderRequestID = "X-Request-ID"
)

// CSRFTokenResponse is the body of GET /get_csrf_token.
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// RegisterRequest is the JSON body of POST /register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
}

// CheckAuthResponse is the body of GET /check_auth.
type CheckAuthResponse struct {
	Authenticated bool `json:"authenticated"`
}

// UserInfo is the user block of the example resource.
type UserInfo struct {
	Username    string  `json:"username" yaml:"username"`
	BankBalance float64 `json:"bank_balance" yaml:"bank_balance"`
}

// ExampleResponse is the body of GET /example.
type ExampleResponse struct {
	Message  string   `json:"message" yaml:"message"`
	UserInfo UserInfo `json:"user_info" yaml:"user_info"`
}

// errorPayload covers both failure shapes the server sends: a single
// detail, or a map of field errors.
type errorPayload struct {
	Detail json.RawMessage            `json:"detail"`
	Errors map[string]json.RawMessage `json:"errors"`
}

// Response is a completed HTTP exchange with the body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the JSON body into dst.
func (r *Response) Decode(dst interface{}) error {
	return json.Unmarshal(r.Body, dst)
}
