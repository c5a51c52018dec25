package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCarriesCookiesAcrossRedirects(t *testing.T) {
	var landingCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "first", Path: "/"})
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		// The service rotates its session id mid-chain; only the rotated
		// value is valid from here on.
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "rotated", Path: "/"})
		http.Redirect(w, r, "/landing", http.StatusFound)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		landingCookie = r.Header.Get("Cookie")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := NewSession("alice", ServiceDaisyStaff, NewCookieSet(), nil)
	resp, err := session.Get(context.Background(), server.URL+"/start")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, landingCookie, "JSESSIONID=rotated",
		"cookie set at a redirect hop must reach the next hop")

	records := session.Cookies()
	require.Len(t, records, 1)
	assert.Equal(t, "rotated", records[0].Value)
}

func TestSessionNoFollowKeepsRedirectResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "minted", Path: "/"})
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := NewSession("alice", ServiceDaisyStaff, NewCookieSet(), nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/login", nil)
	require.NoError(t, err)

	resp, err := session.DoNoFollow(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	records := session.Cookies()
	require.Len(t, records, 1)
	assert.Equal(t, "minted", records[0].Value)
}
