package auth

import "strings"

// Probe decides, from page content alone, whether a cookie set currently
// grants authenticated access to a service. HTTP status is deliberately not
// part of the decision: the services answer 200 for login pages too.
//
// Known limitation: probes are content-marker checks with no structural or
// cryptographic backing. If the upstream service changes its marker text,
// outcomes get misclassified until the markers are updated (see pkg/config
// for runtime marker overrides).
type Probe func(body []byte) bool

// MarkerProbe builds a probe from marker strings, matched case-insensitively.
// Any login marker present means unauthenticated. Otherwise the page counts
// as authenticated if an authenticated marker is present, or if no
// authenticated markers were configured at all (absence-of-login-form mode).
func MarkerProbe(authenticated, login []string) Probe {
	authLower := lowerAll(authenticated)
	loginLower := lowerAll(login)

	return func(body []byte) bool {
		page := strings.ToLower(string(body))
		for _, marker := range loginLower {
			if strings.Contains(page, marker) {
				return false
			}
		}
		if len(authLower) == 0 {
			return true
		}
		for _, marker := range authLower {
			if strings.Contains(page, marker) {
				return true
			}
		}
		return false
	}
}

func lowerAll(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		if m != "" {
			out = append(out, strings.ToLower(m))
		}
	}
	return out
}
