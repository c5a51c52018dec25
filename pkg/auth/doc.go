// Package auth implements browser-equivalent login against the university
// single sign-on and hands out authenticated sessions for the DSV web
// services behind it.
//
// The package has three layers. LoginFlow drives the multi-hop redirect
// dance against the identity provider and yields a cookie set. Orchestrator
// sits on top: it caches cookie sets per (username, service), verifies
// cached sessions with a single cheap probe request, and coalesces
// concurrent logins for the same key into one flow. Session is what callers
// actually hold: an HTTP client bound to a cookie set that keeps itself
// current as the service rotates cookies.
//
// The SAML assertion relayed between identity provider and service provider
// is treated as an opaque form payload and is never parsed or validated
// here; the service provider does that.
package auth
