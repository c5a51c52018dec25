// Package httputil provides small HTTP helpers shared by the auth engine and
// the per-service clients.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// UserAgent mirrors a desktop browser. The IdP serves a reduced login page to
// unknown agents, which breaks form extraction.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// MaxBodySize caps how much of a response body is read. Service pages are
// well under this; it bounds memory on misbehaving responses.
const MaxBodySize = 4 << 20

// SetDefaultHeaders applies the browser-like header set expected by the DSV
// services and the identity provider.
func SetDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,sv;q=0.8")
}

// ReadBody drains and closes a response body, bounded by MaxBodySize.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// BuildURL joins a base URL with path parts and query parameters.
func BuildURL(base string, parts []string, params url.Values) string {
	u := strings.TrimRight(base, "/")
	for _, part := range parts {
		u += "/" + strings.Trim(part, "/")
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// ResolveLocation resolves a redirect Location against the URL of the hop
// that issued it. Servers behind the SSO gateway emit service-relative
// locations; following them verbatim breaks the chain.
func ResolveLocation(prev *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return prev.ResolveReference(ref), nil
}

// IsRedirect reports whether the status code is one of the redirect codes
// the login flow follows manually.
func IsRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
