package auth

import "fmt"

// InvalidCredentialsError indicates the identity provider rejected the
// username/password pair. The IdP answers HTTP 200 either way; rejection is
// detected from the page content.
type InvalidCredentialsError struct {
	Reason string
}

func (e *InvalidCredentialsError) Error() string {
	if e.Reason == "" {
		return "invalid credentials"
	}
	return "invalid credentials: " + e.Reason
}

// AuthenticationError indicates the IdP accepted the credentials but the
// target service did not grant an authenticated session (wrong account type,
// missing entitlement, revoked access).
type AuthenticationError struct {
	Service Service
	Reason  string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("service %s denied the session: %s", e.Service, e.Reason)
}

// ProtocolError indicates an expected redirect, form or form field was
// missing during the login flow. This usually means the upstream page
// structure changed, or an interstitial page the flow does not handle was
// returned.
type ProtocolError struct {
	Hop    string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("login protocol error at %s: %s", e.Hop, e.Reason)
}

// NetworkError indicates a transport failure, timeout or unexpected server
// error status at some hop of the flow. The hop name identifies where.
type NetworkError struct {
	Hop string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error at %s: %v", e.Hop, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CacheError indicates a session cache backend failure. It never escapes
// Acquire: the orchestrator degrades it to a cache miss.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("session cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
