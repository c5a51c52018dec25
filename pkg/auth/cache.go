package auth

import (
	"context"
	"time"
)

// CachedSession is one cache entry: the validated cookie set for a
// (username, service) key plus the data needed for read-time expiry.
// Entries are replaced wholesale, never partially updated.
type CachedSession struct {
	Username string         `json:"username"`
	Service  Service        `json:"service"`
	Cookies  []CookieRecord `json:"cookies"`
	CachedAt time.Time      `json:"cached_at"`
	TTL      time.Duration  `json:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e *CachedSession) Expired(now time.Time) bool {
	return now.After(e.CachedAt.Add(e.TTL))
}

// CacheBackend stores cached sessions. Implementations live in
// pkg/auth/cache; the orchestrator treats every Load failure as a miss, so
// a corrupt or unavailable backend degrades to fresh logins, never to
// Acquire failures.
type CacheBackend interface {
	// Load returns the entry for the key, or (nil, nil) when absent.
	Load(ctx context.Context, username string, service Service) (*CachedSession, error)
	// Store atomically replaces the entry for the session's key. Readers
	// never observe a half-written entry.
	Store(ctx context.Context, session *CachedSession) error
	// Invalidate evicts the entry for the key, if any.
	Invalidate(ctx context.Context, username string, service Service) error
	// Clear evicts everything.
	Clear(ctx context.Context) error
}
