package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// File persists sessions as one JSON document per (username, service) key
// under a directory. It is the backend for CLI use, where a session has to
// outlive the process.
//
// Cookie records round-trip verbatim, including domain and path. Dropping
// either on serialization silently breaks cookie scoping on reload, which
// surfaces as services rejecting an apparently valid session.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir, creating the directory with
// owner-only permissions. Session files contain live credential cookies.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session cache dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(username string, service auth.Service) string {
	return filepath.Join(f.dir, fileKey(username, service)+".json")
}

func (f *File) Load(_ context.Context, username string, service auth.Service) (*auth.CachedSession, error) {
	path := f.path(username, service)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry auth.CachedSession
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt file: remove it and report a miss so the next login
		// rewrites it cleanly.
		_ = os.Remove(path)
		return nil, nil
	}
	return &entry, nil
}

func (f *File) Store(_ context.Context, session *auth.CachedSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	path := f.path(session.Username, session.Service)

	// Write-then-rename so a reader never sees a truncated file.
	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *File) Invalidate(_ context.Context, username string, service auth.Service) error {
	err := os.Remove(f.path(username, service))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *File) Clear(context.Context) error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
