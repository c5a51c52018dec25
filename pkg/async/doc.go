// Package async puts a non-blocking face on the blocking session
// acquisition in pkg/auth.
//
// A login flow takes multiple network round trips, so callers that fan out
// over many accounts or services want to start acquisitions and collect the
// results later. Acquirer runs acquisitions on a bounded worker pool and
// hands back futures; there is exactly one login state machine underneath,
// the synchronous one in pkg/auth, and this package only schedules calls
// into it.
//
// SafeGo is the house rule for fire-and-forget goroutines: panic recovery,
// a deadline and error logging. Use it instead of a bare go statement.
package async
