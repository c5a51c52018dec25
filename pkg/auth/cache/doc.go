// Package cache provides the session cache backends used by the
// authentication orchestrator: an in-memory LRU, a JSON file store, Redis,
// SQLite, and a no-op backend for callers that want every acquire to log in
// fresh.
//
// All backends share the same contract: Load returns (nil, nil) on a miss,
// Store replaces entries atomically, and a corrupt entry is reported as a
// miss rather than an error so that cache damage only ever costs a re-login.
package cache
