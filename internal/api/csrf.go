package api

import (
	"context"
	"net/http"
)

// FetchToken obtains a CSRF token and caches it in the session's token
// store, replacing any previous one. Failures are logged and swallowed: the
// returned token is "" and later requests simply go out without a header.
func (c *Client) FetchToken(ctx context.Context) string {
	token, err := c.RequestToken(ctx)
	if err != nil {
		c.log.Warnw("csrf token fetch failed", "error", err)
		return ""
	}
	return token
}

// RequestToken is FetchToken with the failure reported as a KindTokenFetch
// error. Concurrent callers share one request.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	v, err, _ := c.flight.Do("csrf", func() (interface{}, error) {
		return c.fetchToken(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Token returns the cached CSRF token, or "".
func (c *Client) Token() string {
	return c.session.Tokens().Token()
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req := NewRequest(http.MethodGet, PathCSRFToken, nil)
	req.anonymous = true

	resp, err := c.send(ctx, req)
	if err != nil {
		return "", &Error{Kind: KindTokenFetch, Message: "fetching csrf token", Err: err}
	}
	if !resp.OK() {
		e := responseError(resp)
		e.Kind = KindTokenFetch
		return "", e
	}

	var body CSRFTokenResponse
	if err := resp.Decode(&body); err != nil {
		return "", &Error{Kind: KindTokenFetch, Status: resp.Status, Message: "decoding csrf token", Err: err}
	}
	if body.CSRFToken == "" {
		return "", &Error{Kind: KindTokenFetch, Status: resp.Status, Message: "empty csrf token"}
	}

	c.session.Tokens().Set(body.CSRFToken)
	c.log.Debugw("csrf token cached", "request_id", req.ID)
	return body.CSRFToken, nil
}
