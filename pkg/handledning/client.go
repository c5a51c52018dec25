package handledning

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/httputil"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

// DefaultBaseURL is the production desktop instance. The mobile variant
// lives under /mobile on the same host.
const DefaultBaseURL = "https://handledning.dsv.su.se"

// QueueError indicates the queue rejected a change, with the page's error
// banner when one was shown.
type QueueError struct {
	Reason string
}

func (e *QueueError) Error() string { return "queue operation failed: " + e.Reason }

// Client talks to the supervision system for one authenticated user.
type Client struct {
	web     *auth.Client
	base    string
	service auth.Service
	log     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another instance, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithMobile switches to the mobile variant of the site.
func WithMobile() Option {
	return func(c *Client) {
		c.service = auth.ServiceHandledningMobile
		c.base = DefaultBaseURL + "/mobile"
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// New creates a supervision client authenticating through the given
// provider.
func New(provider auth.SessionProvider, creds auth.Credentials, opts ...Option) *Client {
	c := &Client{
		base:    DefaultBaseURL,
		service: auth.ServiceHandledning,
		log:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.web = auth.NewClient(provider, creds, c.service)
	return c
}

// TeacherSessions lists a teacher's sessions. An empty username means the
// authenticated user.
func (c *Client) TeacherSessions(ctx context.Context, teacher string) ([]Session, error) {
	if teacher == "" {
		teacher = c.web.Username()
	}
	body, err := c.web.GetBody(ctx, httputil.BuildURL(c.base, []string{"teacher", teacher}, nil))
	if err != nil {
		return nil, err
	}
	return ParseSessions(body, teacher)
}

// ActiveSessions lists every session currently running.
func (c *Client) ActiveSessions(ctx context.Context) ([]Session, error) {
	body, err := c.web.GetBody(ctx, httputil.BuildURL(c.base, []string{"sessions", "active"}, nil))
	if err != nil {
		return nil, err
	}
	return ParseSessions(body, "")
}

// Queue returns the student queue for a session, in page order.
func (c *Client) Queue(ctx context.Context, sessionID string) ([]QueueEntry, error) {
	body, err := c.web.GetBody(ctx, httputil.BuildURL(c.base, []string{"queue", sessionID}, nil))
	if err != nil {
		return nil, err
	}
	return ParseQueue(body)
}

// AddToQueue signs a student up for supervision. An empty username means
// the authenticated user. A 200 answer can still carry an error banner, so
// the page is checked too.
func (c *Client) AddToQueue(ctx context.Context, sessionID, student string) error {
	if student == "" {
		student = c.web.Username()
	}
	u := httputil.BuildURL(c.base, []string{"queue", sessionID, "add"}, nil)
	body, err := c.web.PostFormBody(ctx, u, url.Values{"student": {student}})
	if err != nil {
		return err
	}
	if msg := errorText(body); msg != "" {
		return &QueueError{Reason: msg}
	}
	c.log.WithFields(logrus.Fields{"session": sessionID, "student": student}).Debug("added to queue")
	return nil
}

// RemoveFromQueue takes a student out of the queue.
func (c *Client) RemoveFromQueue(ctx context.Context, sessionID, student string) error {
	u := httputil.BuildURL(c.base, []string{"queue", sessionID, "remove"}, nil)
	body, err := c.web.PostFormBody(ctx, u, url.Values{"student": {student}})
	if err != nil {
		return err
	}
	if msg := errorText(body); msg != "" {
		return &QueueError{Reason: msg}
	}
	return nil
}

// ActivateSession opens a session for sign-ups. Teacher only.
func (c *Client) ActivateSession(ctx context.Context, sessionID string) error {
	return c.postSessionAction(ctx, sessionID, "activate")
}

// DeactivateSession closes a session. Teacher only.
func (c *Client) DeactivateSession(ctx context.Context, sessionID string) error {
	return c.postSessionAction(ctx, sessionID, "deactivate")
}

func (c *Client) postSessionAction(ctx context.Context, sessionID, action string) error {
	u := httputil.BuildURL(c.base, []string{"session", sessionID, action}, nil)
	if _, err := c.web.PostFormBody(ctx, u, url.Values{}); err != nil {
		return fmt.Errorf("%s session %s: %w", action, sessionID, err)
	}
	return nil
}
