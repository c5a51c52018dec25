package auth

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// CookieRecord is one cookie with its full scope. Domain and path are kept
// verbatim from the server's Set-Cookie header: a cookie that loses its
// scope gets sent to the wrong requests and silently breaks the session.
type CookieRecord struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Domain  string     `json:"domain"`
	Path    string     `json:"path"`
	Expires *time.Time `json:"expires,omitempty"`
	Secure  bool       `json:"secure,omitempty"`
}

// Key identifies the cookie for replacement purposes.
func (r CookieRecord) Key() CookieKey {
	return CookieKey{Name: r.Name, Domain: r.Domain, Path: r.Path}
}

// CookieKey is the (name, domain, path) triple that scopes a cookie.
type CookieKey struct {
	Name   string
	Domain string
	Path   string
}

// CookieSet is a set of cookies keyed by (name, domain, path). A later
// cookie for the same key replaces the earlier one. Safe for concurrent use.
type CookieSet struct {
	mu      sync.RWMutex
	records map[CookieKey]CookieRecord
}

// NewCookieSet creates an empty cookie set.
func NewCookieSet() *CookieSet {
	return &CookieSet{records: make(map[CookieKey]CookieRecord)}
}

// NewCookieSetFrom creates a cookie set preloaded with the given records.
func NewCookieSetFrom(records []CookieRecord) *CookieSet {
	set := NewCookieSet()
	for _, r := range records {
		set.Set(r)
	}
	return set
}

// Set adds or replaces a cookie.
func (s *CookieSet) Set(record CookieRecord) {
	if record.Path == "" {
		record.Path = "/"
	}
	s.mu.Lock()
	s.records[record.Key()] = record
	s.mu.Unlock()
}

// Get returns the cookie for an exact (name, domain, path) key.
func (s *CookieSet) Get(key CookieKey) (CookieRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	return r, ok
}

// Len returns the number of cookies in the set.
func (s *CookieSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns all cookies sorted by (domain, path, name) so that
// serialized output is deterministic.
func (s *CookieSet) Records() []CookieRecord {
	s.mu.RLock()
	records := make([]CookieRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Name < b.Name
	})
	return records
}

// Clone returns an independent copy of the set.
func (s *CookieSet) Clone() *CookieSet {
	return NewCookieSetFrom(s.Records())
}

// UpdateFromResponse accumulates cookies set by a response. Cookies without
// an explicit domain default to the request host, without a path to "/".
func (s *CookieSet) UpdateFromResponse(resp *http.Response, reqURL *url.URL) {
	for _, c := range resp.Cookies() {
		record := CookieRecord{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}
		if record.Domain == "" {
			record.Domain = reqURL.Hostname()
		}
		if record.Path == "" {
			record.Path = "/"
		}
		if !c.Expires.IsZero() {
			expires := c.Expires
			record.Expires = &expires
		}
		s.Set(record)
	}
}

// HeaderFor builds the Cookie header value for a request URL, honoring
// domain matching, path prefixes, expiry and the Secure attribute. Matching
// cookies are emitted longest path first per RFC 6265 section 5.4, so on a
// name collision the more specific cookie takes precedence.
func (s *CookieSet) HeaderFor(u *url.URL, now time.Time) string {
	host := u.Hostname()
	path := u.Path
	if path == "" {
		path = "/"
	}
	secure := u.Scheme == "https"

	var matched []CookieRecord
	for _, r := range s.Records() {
		if r.Expires != nil && now.After(*r.Expires) {
			continue
		}
		if r.Secure && !secure {
			continue
		}
		if !domainMatch(host, r.Domain) || !pathMatch(path, r.Path) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return len(matched[i].Path) > len(matched[j].Path)
	})

	parts := make([]string, 0, len(matched))
	for _, r := range matched {
		parts = append(parts, r.Name+"="+r.Value)
	}
	return strings.Join(parts, "; ")
}

func domainMatch(host, domain string) bool {
	domain = strings.TrimPrefix(domain, ".")
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if cookiePath == "/" || reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}
