package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// fakeSSO simulates the identity provider and a service provider on one
// httptest server: a protected entry page, the client-storage interstitial,
// the login form, the assertion relay and the final landing page.
type fakeSSO struct {
	server *httptest.Server

	username string
	password string

	logins        atomic.Int64 // completed credential submissions
	landingsServed atomic.Int64

	mu             sync.Mutex
	lastLoginPost  map[string][]string // form fields seen at the SSO endpoint
	lastACSPost    map[string][]string // form fields seen at the assertion consumer
	sessions       map[string]bool     // issued service session tokens
	skipRelayForm  bool                // respond to valid credentials without the relay form
	landingBroken  bool                // serve an unauthenticated-looking landing page
	entryStatus    int                 // non-zero to force a status on /entry
	withInterstitial bool
}

const fakeAssertion = "PHNhbWxwOlJlc3BvbnNlPm9wYXF1ZTwvc2FtbHA6UmVzcG9uc2U+"

func newFakeSSO(username, password string, withInterstitial bool) *fakeSSO {
	f := &fakeSSO{
		username:         username,
		password:         password,
		sessions:         make(map[string]bool),
		withInterstitial: withInterstitial,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/entry", f.handleEntry)
	mux.HandleFunc("/idp/login", f.handleIdPLogin)
	mux.HandleFunc("/idp/interstitial", f.handleInterstitial)
	mux.HandleFunc("/idp/sso", f.handleSSO)
	mux.HandleFunc("/sp/acs", f.handleACS)
	mux.HandleFunc("/landing", f.handleLanding)
	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeSSO) Close() { f.server.Close() }

// descriptor returns a service descriptor pointing at this fake.
func (f *fakeSSO) descriptor(id Service) *Descriptor {
	return &Descriptor{
		ID:       id,
		EntryURL: f.server.URL + "/entry",
		ProbeURL: f.server.URL + "/landing",
		BaseURL:  f.server.URL,
		Probe:    MarkerProbe([]string{"logga ut"}, []string{"j_username"}),
	}
}

func (f *fakeSSO) registry(id Service) *Registry {
	reg := NewRegistry()
	reg.Register(f.descriptor(id))
	return reg
}

// revokeSessions makes every issued service session invalid, as if the
// service expired them.
func (f *fakeSSO) revokeSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token := range f.sessions {
		f.sessions[token] = false
	}
}

func (f *fakeSSO) handleEntry(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.entryStatus
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	// Relative Location on purpose; the flow must resolve it.
	w.Header().Set("Location", "/idp/login")
	w.WriteHeader(http.StatusFound)
}

func (f *fakeSSO) handleIdPLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID_IDP", Value: "idp-1", Path: "/idp"})
	if f.withInterstitial {
		fmt.Fprint(w, `<html><body>
			<form action="/idp/interstitial" method="post">
				<input type="hidden" name="shib_idp_ls_exception.shib_idp_session_ss" value="">
				<input type="hidden" name="shib_idp_ls_supported" value="true">
			</form>
			<noscript>Continue</noscript>
		</body></html>`)
		return
	}
	f.writeLoginPage(w, "")
}

func (f *fakeSSO) handleInterstitial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("shib_idp_ls_supported") != "true" {
		http.Error(w, "interstitial fields not relayed", http.StatusBadRequest)
		return
	}
	f.writeLoginPage(w, "")
}

func (f *fakeSSO) writeLoginPage(w http.ResponseWriter, errorMsg string) {
	errorHTML := ""
	if errorMsg != "" {
		errorHTML = `<p class="form-error">` + errorMsg + `</p>`
	}
	fmt.Fprintf(w, `<html><body>%s
		<form id="login" action="/idp/sso" method="post">
			<input type="text" name="j_username" value="">
			<input type="password" name="j_password" value="">
			<input type="hidden" name="csrf_token" value="tok-123">
			<input type="submit" name="_eventId_authn/SPNEGO" value="Kerberos">
			<input type="submit" name="_eventId_trySPNEGO" value="Try">
		</form>
	</body></html>`, errorHTML)
}

func (f *fakeSSO) handleSSO(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.lastLoginPost = r.PostForm
	skipRelay := f.skipRelayForm
	f.mu.Unlock()

	if r.PostForm.Get("j_username") != f.username || r.PostForm.Get("j_password") != f.password {
		// Real IdP: wrong credentials still answer 200.
		f.writeLoginPage(w, "Felaktigt användarnamn eller lösenord")
		return
	}
	f.logins.Add(1)

	if skipRelay {
		fmt.Fprint(w, `<html><body><p>Unexpected maintenance page</p></body></html>`)
		return
	}
	fmt.Fprintf(w, `<html><body onload="document.forms[0].submit()">
		<form action="/sp/acs" method="post">
			<input type="hidden" name="SAMLResponse" value="%s">
			<input type="hidden" name="RelayState" value="ss:mem:rs-1">
		</form>
	</body></html>`, fakeAssertion)
}

func (f *fakeSSO) handleACS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.lastACSPost = r.PostForm
	f.mu.Unlock()

	if r.PostForm.Get("SAMLResponse") != fakeAssertion {
		http.Error(w, "assertion not relayed verbatim", http.StatusBadRequest)
		return
	}
	token := fmt.Sprintf("svc-%d", f.logins.Load())
	f.mu.Lock()
	f.sessions[token] = true
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: token, Path: "/"})
	w.Header().Set("Location", "/landing")
	w.WriteHeader(http.StatusFound)
}

func (f *fakeSSO) handleLanding(w http.ResponseWriter, r *http.Request) {
	f.landingsServed.Add(1)
	f.mu.Lock()
	broken := f.landingBroken
	f.mu.Unlock()

	cookie, err := r.Cookie("JSESSIONID")
	authenticated := false
	if err == nil {
		f.mu.Lock()
		authenticated = f.sessions[cookie.Value]
		f.mu.Unlock()
	}

	if broken || !authenticated {
		f.writeLoginPage(w, "")
		return
	}
	fmt.Fprint(w, `<html><body><p>Välkommen</p><a href="/logout">Logga ut</a></body></html>`)
}
