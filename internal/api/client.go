package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fragmede/authdesk/internal/auth"
	"github.com/fragmede/authdesk/internal/cache"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "authdesk/1.0"
)

// ProfileStore caches the user_info of successful example fetches.
// *cache.DB implements it.
type ProfileStore interface {
	PutProfile(p cache.Profile) error
}

// Client is the session client for the auth API. Every call reads the CSRF
// token at dispatch, carries the session's cookies, and recovers from an
// expired session with one refresh and one replay.
type Client struct {
	http     *http.Client
	base     string
	session  *auth.Session
	log      *zap.SugaredLogger
	profiles ProfileStore

	// refresh and csrf fetches in flight, shared by concurrent callers
	flight singleflight.Group

	mu         sync.Mutex
	onExpired  func()
	refreshSeq uint64 // refreshes started
	expiredSeq uint64 // last refresh whose failure was signalled
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout bounds each HTTP exchange.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithProfileStore caches example profiles in p.
func WithProfileStore(p ProfileStore) Option {
	return func(c *Client) { c.profiles = p }
}

// WithAuthExpiredHandler registers fn to run when the session cannot be
// recovered. It is the "go to the login screen" signal.
func WithAuthExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// NewClient creates a client for the API the session is bound to.
func NewClient(session *auth.Session, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: requestTimeout,
			Jar:     session,
		},
		base:    session.BaseURL(),
		session: session,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client reads and updates.
func (c *Client) Session() *auth.Session {
	return c.session
}

// OnAuthExpired replaces the auth-expired handler.
func (c *Client) OnAuthExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// Request is one logical outbound call. The body is held as bytes so a
// replay after refresh sends exactly what the first attempt sent.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
	ID     string

	retried   bool
	anonymous bool // no CSRF header, used by the token fetch itself
}

// NewRequest builds a request for path relative to the API base.
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Header: make(http.Header),
	}
}

// Do sends req through the full pipeline: CSRF injection on the way out,
// and on the way back a single refresh-and-replay when the first attempt
// gets a 401. Non-2xx outcomes come back as *Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := c.log.With("request_id", req.ID, "method", req.Method, "path", req.Path)
	state := StateInitial
	transition := func(next State) {
		log.Debugw("request state", "from", state, "to", next, "terminal", next.Terminal())
		state = next
	}

	transition(StateSent)
	resp, err := c.send(ctx, req)
	if err != nil {
		transition(StateFailedOther)
		return nil, err
	}

	switch Decide(resp.Status, req.retried) {
	case ActionReturn:
		transition(StateSuccess)
		return resp, nil
	case ActionFail:
		transition(StateFailedOther)
		return nil, failure(resp, req.retried)
	}

	transition(StateFailed401First)
	req.retried = true

	transition(StateRefreshing)
	if seq, err := c.refreshShared(ctx); err != nil {
		transition(StateRefreshFailed)
		c.expire(log, seq, err)
		e := failure(resp, req.retried)
		e.Err = err
		return nil, e
	}

	transition(StateReplayed)
	resp, err = c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if Decide(resp.Status, req.retried) == ActionReturn {
		return resp, nil
	}
	log.Infow("replay after refresh failed", "status", resp.Status)
	return nil, failure(resp, req.retried)
}

// failure maps a non-recoverable response to its error. A 401 after the
// recovery attempt means the user has to log in again; the server payload
// is preserved either way.
func failure(resp *Response, retried bool) *Error {
	e := responseError(resp)
	if retried && resp.Status == http.StatusUnauthorized {
		e.Kind = KindAuthExpired
		if e.Message == "" {
			e.Message = msgAuthExpired
		}
	}
	return e
}

// send performs the request phase and one HTTP exchange, without any
// recovery.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.base+req.Path, body)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Message: "creating request", Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("User-Agent", userAgent)
	hreq.Header.Set(HeaderRequestID, req.ID)
	if !req.anonymous {
		if token := c.session.Tokens().Token(); token != "" {
			hreq.Header.Set(HeaderCSRFToken, token)
		}
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(fmt.Errorf("reading response: %w", err))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// refreshShared runs Refresh, joining a refresh already in flight instead
// of starting another one. The returned sequence number identifies the
// refresh that actually ran, so every caller that joined it sees the same
// value.
func (c *Client) refreshShared(ctx context.Context) (uint64, error) {
	v, err, shared := c.flight.Do("refresh", func() (interface{}, error) {
		c.mu.Lock()
		c.refreshSeq++
		seq := c.refreshSeq
		c.mu.Unlock()
		return seq, c.Refresh(context.WithoutCancel(ctx))
	})
	if shared {
		c.log.Debugw("joined in-flight refresh", "error", err)
	}
	seq, _ := v.(uint64)
	return seq, err
}

// expire clears local credentials and signals the UI to show the login
// screen. Callers that shared one failed refresh trigger it once.
func (c *Client) expire(log *zap.SugaredLogger, seq uint64, cause error) {
	c.mu.Lock()
	if seq != 0 && seq <= c.expiredSeq {
		c.mu.Unlock()
		log.Debugw("session already expired by a shared refresh", "refresh", seq)
		return
	}
	c.expiredSeq = seq
	fn := c.onExpired
	c.mu.Unlock()

	log.Warnw("session refresh failed, clearing credentials", "error", cause, "refresh", seq)
	if err := c.session.Clear(); err != nil {
		log.Errorw("clearing session", "error", err)
	}
	if fn != nil {
		fn()
	}
}

// persist saves the session after the server may have rotated cookies.
func (c *Client) persist() {
	if err := c.session.Save(); err != nil {
		c.log.Warnw("persisting session", "error", err)
	}
}
