package dsv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/auth/cache"
)

func TestClientReusesServiceClients(t *testing.T) {
	c := New(auth.Credentials{Username: "abcd1234", Password: "secret"},
		WithCache(cache.NewMemory(8, time.Hour)),
	)
	defer c.Close()

	assert.Equal(t, "abcd1234", c.Username())
	require.NotNil(t, c.Sessions())

	assert.Same(t, c.Daisy(), c.Daisy())
	assert.Same(t, c.Handledning(), c.Handledning())
	assert.Same(t, c.ClickMap(), c.ClickMap())
	assert.Same(t, c.ACTLab(), c.ACTLab())
}

func TestClientCloseWithoutMail(t *testing.T) {
	c := New(auth.Credentials{Username: "abcd1234"})
	assert.NoError(t, c.Close())
}
