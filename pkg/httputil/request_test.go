package httputil

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		parts  []string
		params url.Values
		want   string
	}{
		{
			name: "base only",
			base: "https://handledning.dsv.su.se/",
			want: "https://handledning.dsv.su.se",
		},
		{
			name:  "path parts trimmed",
			base:  "https://handledning.dsv.su.se",
			parts: []string{"/queue/", "42", "add"},
			want:  "https://handledning.dsv.su.se/queue/42/add",
		},
		{
			name:   "query params",
			base:   "https://daisy.dsv.su.se",
			parts:  []string{"book"},
			params: url.Values{"room": {"633"}, "date": {"2026-01-15"}},
			want:   "https://daisy.dsv.su.se/book?date=2026-01-15&room=633",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.base, tt.parts, tt.params))
		})
	}
}

func TestResolveLocation(t *testing.T) {
	prev, err := url.Parse("https://daisy.dsv.su.se/Shibboleth.sso/SAML2/POST")
	require.NoError(t, err)

	relative, err := ResolveLocation(prev, "/landing")
	require.NoError(t, err)
	assert.Equal(t, "https://daisy.dsv.su.se/landing", relative.String())

	absolute, err := ResolveLocation(prev, "https://idp.it.su.se/idp/profile/SAML2/Redirect/SSO?execution=e1s1")
	require.NoError(t, err)
	assert.Equal(t, "idp.it.su.se", absolute.Host)

	_, err = ResolveLocation(prev, "://bad")
	assert.Error(t, err)
}

func TestIsRedirect(t *testing.T) {
	assert.True(t, IsRedirect(http.StatusFound))
	assert.True(t, IsRedirect(http.StatusSeeOther))
	assert.False(t, IsRedirect(http.StatusOK))
	assert.False(t, IsRedirect(http.StatusInternalServerError))
}

func TestSetDefaultHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://daisy.dsv.su.se/index.jspa", nil)
	require.NoError(t, err)

	SetDefaultHeaders(req)
	assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))
	assert.NotEmpty(t, req.Header.Get("Accept"))
}
