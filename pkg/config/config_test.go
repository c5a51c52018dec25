package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/auth/cache"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 60*time.Second, cfg.Flow.HopTimeout)
	assert.Equal(t, "ebox.su.se:993", cfg.Mail.IMAPAddr)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DSV_USERNAME", "alice")
	t.Setenv("DSV_CACHE_BACKEND", "memory")
	t.Setenv("DSV_SESSION_TTL", "2h")
	t.Setenv("DSV_HOP_TIMEOUT", "30s")
	t.Setenv("DSV_METRICS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Account.Username)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Flow.HopTimeout)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	t.Setenv("DSV_CACHE_BACKEND", "memcached")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateBackendRequirements(t *testing.T) {
	cfg := &Config{Cache: CacheConfig{Backend: "redis", TTL: time.Hour}}
	require.Error(t, cfg.Validate(), "redis backend needs a URL")

	cfg.Cache.RedisURL = "redis://localhost:6379/0"
	require.NoError(t, cfg.Validate())

	cfg = &Config{Cache: CacheConfig{Backend: "sqlite", TTL: time.Hour}}
	require.Error(t, cfg.Validate(), "sqlite backend needs a path")

	cfg = &Config{Cache: CacheConfig{Backend: "memory"}}
	require.Error(t, cfg.Validate(), "TTL must be positive")
}

func TestCredentialsFromEnvironment(t *testing.T) {
	cfg := &Config{Account: AccountConfig{Username: "alice", Password: "secret"}}
	creds, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Equal(t, auth.Credentials{Username: "alice", Password: "secret"}, creds)

	cfg = &Config{}
	_, err = cfg.Credentials()
	require.Error(t, err, "missing username must be an error")
}

func TestNewCacheBackend(t *testing.T) {
	ctx := context.Background()

	backend, err := NewCacheBackend(ctx, CacheConfig{Backend: "null"})
	require.NoError(t, err)
	assert.IsType(t, &cache.Null{}, backend)

	backend, err = NewCacheBackend(ctx, CacheConfig{Backend: "memory", MaxEntries: 8, TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &cache.Memory{}, backend)

	backend, err = NewCacheBackend(ctx, CacheConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &cache.File{}, backend)

	backend, err = NewCacheBackend(ctx, CacheConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLite{}, backend)

	_, err = NewCacheBackend(ctx, CacheConfig{Backend: "bogus"})
	require.Error(t, err)
}

const markerYAML = `
daisy-staff:
  authenticated: ["logga ut"]
  login: ["j_username"]
clickmap:
  login: ["<form"]
`

func TestLoadMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(markerYAML), 0o600))

	markers, err := LoadMarkers(path)
	require.NoError(t, err)
	require.Contains(t, markers, auth.ServiceDaisyStaff)
	assert.Equal(t, []string{"logga ut"}, markers[auth.ServiceDaisyStaff].Authenticated)
	assert.Empty(t, markers[auth.ServiceClickMap].Authenticated)
}

func TestMarkersApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(markerYAML), 0o600))
	markers, err := LoadMarkers(path)
	require.NoError(t, err)

	reg := auth.DefaultRegistry()
	require.NoError(t, markers.Apply(reg))

	desc, err := reg.Lookup(auth.ServiceDaisyStaff)
	require.NoError(t, err)
	assert.True(t, desc.Probe([]byte("... Logga ut ...")))
	assert.False(t, desc.Probe([]byte(`<input name="j_username">`)))
}

func TestMarkersApplyUnknownService(t *testing.T) {
	markers := Markers{auth.Service("nope"): {Login: []string{"x"}}}
	require.Error(t, markers.Apply(auth.DefaultRegistry()))
}

func TestWatchMarkersReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(markerYAML), 0o600))

	reg := auth.DefaultRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, WatchMarkers(ctx, path, reg, observability.NopLogger()))

	// Flip daisy-staff's authenticated marker and wait for the reload.
	updated := `
daisy-staff:
  authenticated: ["utloggad-knapp"]
  login: ["j_username"]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		desc, err := reg.Lookup(auth.ServiceDaisyStaff)
		if err != nil {
			return false
		}
		return desc.Probe([]byte("utloggad-knapp")) && !desc.Probe([]byte("logga ut"))
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatchMarkersMissingFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := WatchMarkers(ctx, filepath.Join(t.TempDir(), "absent.yaml"), auth.DefaultRegistry(), observability.NopLogger())
	require.Error(t, err)
}
