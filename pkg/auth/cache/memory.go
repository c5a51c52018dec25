package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

const defaultMemoryEntries = 128

// Memory is an in-process backend over an expiring LRU. It is the right
// choice for long-running services: hot sessions stay resident, idle ones
// age out, and nothing touches disk.
type Memory struct {
	lru *expirable.LRU[string, *auth.CachedSession]
}

// NewMemory creates a memory backend holding at most maxEntries sessions,
// each evicted ttl after insertion. maxEntries <= 0 selects a default size
// and ttl <= 0 disables LRU-side expiry, leaving expiry entirely to the
// read-time TTL check on the entries themselves.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryEntries
	}
	return &Memory{
		lru: expirable.NewLRU[string, *auth.CachedSession](maxEntries, nil, ttl),
	}
}

func (m *Memory) Load(_ context.Context, username string, service auth.Service) (*auth.CachedSession, error) {
	entry, ok := m.lru.Get(entryKey(username, service))
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func (m *Memory) Store(_ context.Context, session *auth.CachedSession) error {
	m.lru.Add(entryKey(session.Username, session.Service), session)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, username string, service auth.Service) error {
	m.lru.Remove(entryKey(username, service))
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.lru.Purge()
	return nil
}
