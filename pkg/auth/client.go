package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/dsv-su/dsvgo/pkg/httputil"
)

// SessionProvider is the part of the Orchestrator that service clients
// depend on. Tests substitute a stub.
type SessionProvider interface {
	Acquire(ctx context.Context, creds Credentials, service Service) (*Session, error)
	AcquireFresh(ctx context.Context, creds Credentials, service Service) (*Session, error)
	Invalidate(ctx context.Context, username string, service Service) error
}

// Client binds a SessionProvider to one service for downstream requests.
// The session is acquired lazily on first use. When a response turns out to
// be the login page, meaning the server-side session expired or was revoked
// between requests, the client re-authenticates once and replays the
// request.
type Client struct {
	provider SessionProvider
	creds    Credentials
	service  Service

	mu      sync.Mutex
	session *Session
}

// NewClient creates a client for the given service.
func NewClient(provider SessionProvider, creds Credentials, service Service) *Client {
	return &Client{provider: provider, creds: creds, service: service}
}

// ServiceID returns the service this client is bound to.
func (c *Client) ServiceID() Service { return c.service }

// Username returns the identity the client authenticates as.
func (c *Client) Username() string { return c.creds.Username }

// Session returns the current session, acquiring one if needed.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	sess, err := c.provider.Acquire(ctx, c.creds, c.service)
	if err != nil {
		return nil, err
	}
	c.session = sess
	return sess, nil
}

// Refresh discards the current session and authenticates from scratch,
// bypassing the session cache.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.provider.Invalidate(ctx, c.creds.Username, c.service)
	sess, err := c.provider.AcquireFresh(ctx, c.creds, c.service)
	if err != nil {
		c.session = nil
		return nil, err
	}
	c.session = sess
	return sess, nil
}

// GetBody issues a GET and returns the response body, renewing the session
// once if the page served is the login page.
func (c *Client) GetBody(ctx context.Context, rawURL string) ([]byte, error) {
	return c.bodyWithRetry(ctx, func(sess *Session) (*http.Response, error) {
		return sess.Get(ctx, rawURL)
	})
}

// PostFormBody issues a form POST and returns the response body, renewing
// the session once if the page served is the login page.
func (c *Client) PostFormBody(ctx context.Context, rawURL string, data url.Values) ([]byte, error) {
	return c.bodyWithRetry(ctx, func(sess *Session) (*http.Response, error) {
		return sess.PostForm(ctx, rawURL, data)
	})
}

// Send issues a request through the session and returns the response
// together with its already-consumed body. When the login page comes back
// instead of service content the session is renewed once and the request
// replayed. Callers that care about specific status codes inspect the
// response themselves.
func (c *Client) Send(ctx context.Context, send func(*Session) (*http.Response, error)) (*http.Response, []byte, error) {
	sess, err := c.Session(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, body, err := c.sendAndRead(sess, send)
	if err != nil {
		return nil, nil, err
	}
	if !LooksLikeLoginPage(body) {
		return resp, body, nil
	}

	sess, err = c.Refresh(ctx)
	if err != nil {
		return nil, nil, err
	}
	resp, body, err = c.sendAndRead(sess, send)
	if err != nil {
		return nil, nil, err
	}
	if LooksLikeLoginPage(body) {
		return nil, nil, &AuthenticationError{Service: c.service, Reason: "login page served again after session renewal"}
	}
	return resp, body, nil
}

func (c *Client) bodyWithRetry(ctx context.Context, send func(*Session) (*http.Response, error)) ([]byte, error) {
	resp, body, err := c.Send(ctx, send)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &NetworkError{Hop: string(c.service) + " request", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return body, nil
}

func (c *Client) sendAndRead(sess *Session, send func(*Session) (*http.Response, error)) (*http.Response, []byte, error) {
	resp, err := send(sess)
	if err != nil {
		return nil, nil, &NetworkError{Hop: string(c.service) + " request", Err: err}
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, nil, &NetworkError{Hop: string(c.service) + " response", Err: err}
	}
	return resp, body, nil
}

// LooksLikeLoginPage reports whether a response body is the SSO login form
// rather than service content. Services behind the gateway answer 200 with
// the login page when the session has expired.
func LooksLikeLoginPage(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("j_username")) ||
		bytes.Contains(lower, []byte(`id="login"`))
}
