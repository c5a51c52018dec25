package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/httputil"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

// Hop names attached to errors for diagnosis.
const (
	hopEntry                = "entry"
	hopInterstitial         = "interstitial"
	hopCredentialSubmission = "credential submission"
	hopAssertionRelay       = "assertion relay"
	hopRedirectFollow       = "redirect follow"
)

// invalidCredentialsMarker is the IdP's Swedish "wrong username or password"
// message. The IdP answers HTTP 200 on failed logins, so this marker is the
// reliable signal.
const invalidCredentialsMarker = "felaktigt användarnamn eller lösenord"

const (
	defaultHopTimeout   = 60 * time.Second
	defaultMaxRedirects = 10
)

// LoginFlow executes the federated login redirect chain against the SU
// identity provider and produces a validated cookie set for one
// (credentials, service) pair. A single LoginFlow is safe for concurrent
// use; all per-run state lives in the run itself.
type LoginFlow struct {
	registry     *Registry
	client       *http.Client
	hopTimeout   time.Duration
	maxRedirects int
	log          *logrus.Entry
}

// FlowOption configures a LoginFlow.
type FlowOption func(*LoginFlow)

// WithHopTimeout sets the per-request timeout. Exceeding it fails the whole
// attempt with a NetworkError; the flow never retries internally.
func WithHopTimeout(d time.Duration) FlowOption {
	return func(f *LoginFlow) { f.hopTimeout = d }
}

// WithFlowTransport sets the HTTP transport used for flow requests.
func WithFlowTransport(rt http.RoundTripper) FlowOption {
	return func(f *LoginFlow) { f.client.Transport = rt }
}

// WithFlowLogger sets the flow's logger.
func WithFlowLogger(log *logrus.Entry) FlowOption {
	return func(f *LoginFlow) { f.log = log }
}

// NewLoginFlow creates a login flow against the given service registry.
func NewLoginFlow(registry *Registry, opts ...FlowOption) *LoginFlow {
	f := &LoginFlow{
		registry: registry,
		// Redirects are followed manually so every hop's cookies are
		// captured and relative Locations are resolved explicitly.
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		hopTimeout:   defaultHopTimeout,
		maxRedirects: defaultMaxRedirects,
		log:          observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// flowState is the transient state of one Run invocation: the evolving
// cookie jar and the URL of the last followed hop.
type flowState struct {
	jar     *CookieSet
	current *url.URL
}

// Run executes the full login protocol and returns the accumulated cookie
// set once the service's probe accepts the final page.
func (f *LoginFlow) Run(ctx context.Context, creds Credentials, service Service) (*CookieSet, error) {
	desc, err := f.registry.Lookup(service)
	if err != nil {
		return nil, err
	}

	state := &flowState{jar: NewCookieSet()}
	log := f.log.WithFields(logrus.Fields{
		"service":  service,
		"username": creds.Username,
		"flow_id":  uuid.NewString()[:8],
	})

	// Start: hit the protected entry URL and ride the redirect chain into
	// the identity provider.
	log.Debug("starting SSO login flow")
	resp, body, err := f.get(ctx, state, desc.EntryURL, hopEntry)
	if err != nil {
		return nil, err
	}
	resp, body, err = f.followRedirects(ctx, state, resp, body, hopEntry)
	if err != nil {
		return nil, err
	}

	doc, err := parseHTML(body)
	if err != nil {
		return nil, &ProtocolError{Hop: hopEntry, Reason: err.Error()}
	}
	forms := extractForms(doc)

	// The IdP serves a client-storage interstitial before the login page on
	// a fresh session. Auto-post it through.
	if interstitial := findInterstitialForm(forms); interstitial != nil {
		log.Debug("submitting IdP interstitial form")
		action, perr := f.resolveAction(state, interstitial.action, hopInterstitial)
		if perr != nil {
			return nil, perr
		}
		data := cloneValues(interstitial.fields)
		data.Set("_eventId_proceed", "")

		resp, body, err = f.postForm(ctx, state, action, data, hopInterstitial)
		if err != nil {
			return nil, err
		}
		resp, body, err = f.followRedirects(ctx, state, resp, body, hopInterstitial)
		if err != nil {
			return nil, err
		}
		if doc, err = parseHTML(body); err != nil {
			return nil, &ProtocolError{Hop: hopInterstitial, Reason: err.Error()}
		}
		forms = extractForms(doc)
	}

	// CredentialSubmission: fill the IdP login form and post it.
	login := findLoginForm(forms)
	if login == nil {
		return nil, &ProtocolError{Hop: hopCredentialSubmission, Reason: "no login form in IdP response"}
	}
	action, perr := f.resolveAction(state, login.action, hopCredentialSubmission)
	if perr != nil {
		return nil, perr
	}

	data := cloneValues(login.fields)
	data.Set("j_username", creds.Username)
	data.Set("j_password", creds.Password)
	data.Set("_eventId_proceed", "")
	// SPNEGO events would divert the flow into Kerberos negotiation.
	data.Del("_eventId_authn/SPNEGO")
	data.Del("_eventId_trySPNEGO")

	log.Debug("submitting credentials")
	resp, body, err = f.postForm(ctx, state, action, data, hopCredentialSubmission)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		if ierr := checkLoginRejected(body); ierr != nil {
			log.WithField("reason", ierr.Reason).Info("IdP rejected credentials")
			return nil, ierr
		}
	}

	resp, body, err = f.followRedirects(ctx, state, resp, body, hopCredentialSubmission)
	if err != nil {
		return nil, err
	}
	if ierr := checkLoginRejected(body); ierr != nil {
		log.WithField("reason", ierr.Reason).Info("IdP rejected credentials")
		return nil, ierr
	}

	// AssertionRelay: the IdP answers with an auto-post form carrying the
	// signed assertion. The assertion is an opaque blob; every field is
	// relayed verbatim and nothing is parsed or verified.
	if doc, err = parseHTML(body); err != nil {
		return nil, &ProtocolError{Hop: hopAssertionRelay, Reason: err.Error()}
	}
	relay := findAutoPostForm(extractForms(doc))
	if relay == nil {
		return nil, &ProtocolError{Hop: hopAssertionRelay, Reason: "no assertion relay form in IdP response"}
	}
	relayAction, perr := f.resolveAction(state, relay.action, hopAssertionRelay)
	if perr != nil {
		return nil, perr
	}

	log.Debug("relaying assertion to service")
	resp, body, err = f.postForm(ctx, state, relayAction, cloneValues(relay.fields), hopAssertionRelay)
	if err != nil {
		return nil, err
	}

	// RedirectFollow: ride the chain back to the service.
	_, body, err = f.followRedirects(ctx, state, resp, body, hopRedirectFollow)
	if err != nil {
		return nil, err
	}

	// Validate: the chain completed, but only the probe says whether the
	// final page is the authenticated view.
	if !desc.Probe(body) {
		return nil, &AuthenticationError{Service: service, Reason: "login completed but final page is not the authenticated view"}
	}

	log.WithField("cookies", state.jar.Len()).Info("SSO login succeeded")
	return state.jar, nil
}

// checkLoginRejected inspects an IdP response for login failure: either the
// rendered form error, the known failure marker, or the login form served
// again. HTTP status is not consulted.
func checkLoginRejected(body []byte) *InvalidCredentialsError {
	doc, err := parseHTML(body)
	if err != nil {
		return nil
	}
	if msg := loginErrorText(doc); msg != "" {
		return &InvalidCredentialsError{Reason: msg}
	}
	if strings.Contains(strings.ToLower(string(body)), invalidCredentialsMarker) {
		return &InvalidCredentialsError{Reason: "felaktigt användarnamn eller lösenord"}
	}
	if findLoginForm(extractForms(doc)) != nil {
		return &InvalidCredentialsError{Reason: "still on login page after credential submission"}
	}
	return nil
}

func (f *LoginFlow) get(ctx context.Context, state *flowState, rawURL, hop string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, &ProtocolError{Hop: hop, Reason: fmt.Sprintf("invalid URL %q: %v", rawURL, err)}
	}
	return f.do(ctx, state, req, hop)
}

func (f *LoginFlow) postForm(ctx context.Context, state *flowState, action *url.URL, data url.Values, hop string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, action.String(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, &ProtocolError{Hop: hop, Reason: fmt.Sprintf("invalid form action %q: %v", action, err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(ctx, state, req, hop)
}

// do performs one hop: attach cookies, run the request under the hop
// timeout, read the body and fold new cookies into the jar.
func (f *LoginFlow) do(ctx context.Context, state *flowState, req *http.Request, hop string) (*http.Response, []byte, error) {
	httputil.SetDefaultHeaders(req)
	if header := state.jar.HeaderFor(req.URL, time.Now()); header != "" {
		req.Header.Set("Cookie", header)
	}

	hopCtx, cancel := context.WithTimeout(ctx, f.hopTimeout)
	defer cancel()

	resp, err := f.client.Do(req.WithContext(hopCtx))
	if err != nil {
		return nil, nil, &NetworkError{Hop: hop, Err: err}
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, nil, &NetworkError{Hop: hop, Err: err}
	}

	state.jar.UpdateFromResponse(resp, req.URL)
	state.current = req.URL

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, nil, &NetworkError{Hop: hop, Err: fmt.Errorf("server error: HTTP %d", resp.StatusCode)}
	}
	return resp, body, nil
}

// followRedirects follows 3xx responses until a non-redirect is reached,
// resolving each Location against the prior hop's absolute URL.
func (f *LoginFlow) followRedirects(ctx context.Context, state *flowState, resp *http.Response, body []byte, hop string) (*http.Response, []byte, error) {
	for hops := 0; httputil.IsRedirect(resp.StatusCode); hops++ {
		if hops >= f.maxRedirects {
			return nil, nil, &ProtocolError{Hop: hop, Reason: "too many redirects"}
		}
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, nil, &ProtocolError{Hop: hop, Reason: "redirect without Location header"}
		}
		next, err := httputil.ResolveLocation(state.current, location)
		if err != nil {
			return nil, nil, &ProtocolError{Hop: hop, Reason: err.Error()}
		}
		resp, body, err = f.get(ctx, state, next.String(), hop)
		if err != nil {
			return nil, nil, err
		}
	}
	return resp, body, nil
}

func (f *LoginFlow) resolveAction(state *flowState, action, hop string) (*url.URL, *ProtocolError) {
	if action == "" {
		return nil, &ProtocolError{Hop: hop, Reason: "form without action"}
	}
	resolved, err := httputil.ResolveLocation(state.current, action)
	if err != nil {
		return nil, &ProtocolError{Hop: hop, Reason: err.Error()}
	}
	return resolved, nil
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}
