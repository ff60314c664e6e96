package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Login submits credentials as a form post. When no CSRF token is cached
// it fetches one first. Like every other call it goes through Do, so a 401
// is answered with one refresh and one replay; when that does not help the
// error carries the server's detail (usually bad credentials). On success
// the username and the new cookies are saved; the caller follows up with
// CheckAuth.
func (c *Client) Login(ctx context.Context, username, password string) (*Response, error) {
	if c.Token() == "" {
		c.FetchToken(ctx)
	}

	// Field order matches what the server's form parser documents.
	body := "username=" + url.QueryEscape(username) + "&password=" + url.QueryEscape(password)
	req := NewRequest(http.MethodPost, PathLogin, []byte(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Do(ctx, req)
	if err != nil {
		c.log.Infow("login rejected", "username", username, "error", err)
		return nil, err
	}

	c.session.SetUsername(username)
	c.persist()
	c.log.Infow("logged in", "username", username)
	return resp, nil
}

// Register creates an account. Failures come back as *Error: KindValidation
// with Fields when the server rejected individual fields, otherwise a flat
// Message (the server's detail, or a generic one).
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding registration: %w", err)
	}
	req := NewRequest(http.MethodPost, PathRegister, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, registrationError(err)
	}
	return resp, nil
}

func registrationError(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindRequest, Message: msgRegistration, Err: err}
	}
	switch {
	case e.Kind == KindNetwork || e.Kind == KindAuthExpired:
		return e
	case len(e.Fields) > 0:
		return &Error{Kind: KindValidation, Status: e.Status, Message: msgValidation, Fields: e.Fields}
	case e.Message == "":
		return &Error{Kind: e.Kind, Status: e.Status, Message: msgRegistration}
	}
	return e
}

// Refresh asks the server to renew the session from its refresh cookie.
// It never triggers recovery itself.
func (c *Client) Refresh(ctx context.Context) error {
	req := NewRequest(http.MethodPost, PathRefresh, nil)
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return responseError(resp)
	}
	c.persist()
	c.log.Debugw("session refreshed", "request_id", req.ID)
	return nil
}

// CheckAuth reports whether the server accepts the current session. On a
// 401 it refreshes once and checks once more. It never returns an error:
// every failure reads as "not authenticated".
func (c *Client) CheckAuth(ctx context.Context) bool {
	authed, status, err := c.checkOnce(ctx)
	if err == nil {
		return authed
	}
	if status != http.StatusUnauthorized {
		c.log.Debugw("check_auth failed", "error", err)
		return false
	}

	if _, err := c.refreshShared(ctx); err != nil {
		c.log.Infow("check_auth refresh failed", "error", err)
		return false
	}
	authed, _, err = c.checkOnce(ctx)
	if err != nil {
		c.log.Infow("check_auth retry failed", "error", err)
		return false
	}
	return authed
}

func (c *Client) checkOnce(ctx context.Context) (bool, int, error) {
	resp, err := c.send(ctx, NewRequest(http.MethodGet, PathCheckAuth, nil))
	if err != nil {
		return false, 0, err
	}
	if !resp.OK() {
		return false, resp.Status, responseError(resp)
	}
	var body CheckAuthResponse
	if err := resp.Decode(&body); err != nil {
		return false, resp.Status, fmt.Errorf("decoding check_auth: %w", err)
	}
	return body.Authenticated, resp.Status, nil
}

// GoogleLoginURL is where a browser starts the external OAuth login.
func (c *Client) GoogleLoginURL() string {
	return c.base + PathGoogleLogin
}
