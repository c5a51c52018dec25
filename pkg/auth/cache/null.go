package cache

import (
	"context"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// Null is a backend that stores nothing. Every Load is a miss and every
// Store is discarded, so an orchestrator configured with it performs a full
// login on every acquire.
type Null struct{}

// NewNull returns the no-op backend.
func NewNull() *Null { return &Null{} }

func (*Null) Load(context.Context, string, auth.Service) (*auth.CachedSession, error) {
	return nil, nil
}

func (*Null) Store(context.Context, *auth.CachedSession) error { return nil }

func (*Null) Invalidate(context.Context, string, auth.Service) error { return nil }

func (*Null) Clear(context.Context) error { return nil }
