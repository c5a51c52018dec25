package auth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dsv-su/dsvgo/pkg/httputil"
)

// Session is the capability handed to downstream service clients: it issues
// HTTP requests carrying the validated cookie set. Clients never see the
// login flow or the session cache; session renewal always goes through a
// fresh Orchestrator.Acquire.
type Session struct {
	username string
	service  Service
	cookies  *CookieSet
	client   *http.Client
}

// NewSession builds a session around an independent copy of the cookies so
// the source set is never mutated in place. Production code obtains sessions
// from Orchestrator.Acquire; this constructor exists for tests and for
// callers that manage cookies themselves.
func NewSession(username string, service Service, cookies *CookieSet, transport http.RoundTripper) *Session {
	s := &Session{
		username: username,
		service:  service,
		cookies:  cookies.Clone(),
	}
	s.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			// Fold in cookies set by the redirecting hop before scoping the
			// next request. Shibboleth rotates JSESSIONID on intermediate
			// 302s and the final response never repeats them.
			if req.Response != nil {
				s.cookies.UpdateFromResponse(req.Response, via[len(via)-1].URL)
			}
			// Cookies are attached per hop; scope decides, not the client.
			s.attachCookies(req)
			return nil
		},
	}
	return s
}

// Username returns the identity the session was established for.
func (s *Session) Username() string { return s.username }

// Service returns the service the session is scoped to.
func (s *Session) Service() Service { return s.service }

// Cookies returns a snapshot of the session's cookies.
func (s *Session) Cookies() []CookieRecord { return s.cookies.Records() }

// Do issues a request with the session's cookies attached. Cookies set by
// the service (rolling JSESSIONIDs) are folded back into the session's
// working set; the cached entry is unaffected.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	httputil.SetDefaultHeaders(req)
	s.attachCookies(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	s.cookies.UpdateFromResponse(resp, resp.Request.URL)
	return resp, nil
}

// Get issues a GET request through the session.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(req)
}

// PostForm issues an application/x-www-form-urlencoded POST through the
// session.
func (s *Session) PostForm(ctx context.Context, rawURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.Do(req)
}

// Post issues a POST with an arbitrary content type through the session.
func (s *Session) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return s.Do(req)
}

// DoNoFollow issues a request and returns the first response without
// following redirects. Some legacy endpoints report their outcome through
// the redirect response itself (status, Location, Set-Cookie).
func (s *Session) DoNoFollow(req *http.Request) (*http.Response, error) {
	httputil.SetDefaultHeaders(req)
	s.attachCookies(req)

	client := &http.Client{
		Transport: s.client.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	s.cookies.UpdateFromResponse(resp, resp.Request.URL)
	return resp, nil
}

func (s *Session) attachCookies(req *http.Request) {
	if header := s.cookies.HeaderFor(req.URL, time.Now()); header != "" {
		req.Header.Set("Cookie", header)
	}
}

// InstrumentedTransport wraps the default transport with OpenTelemetry HTTP
// client instrumentation. Pass it to WithTransport to trace every session
// and login flow request.
func InstrumentedTransport() http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport)
}
