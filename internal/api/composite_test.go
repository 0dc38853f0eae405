package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_JoinsBothResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/vuln/headers":
			w.Write([]byte(`{"results":[{"header":"HSTS","status":"fail"}]}`))
		case "/api/vuln/ssl":
			w.Write([]byte(`{"result":{"valid":true,"grade":"A"}}`))
		}
	})

	res, err := c.Vuln.Surface(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.NotNil(t, res.Headers["results"])
	assert.NotNil(t, res.SSL["result"])
}

func TestSurface_EitherFailureIsCombined(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/vuln/headers":
			w.Write([]byte(`{"results":[]}`))
		case "/api/vuln/ssl":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"detail":"handshake failed"}`))
		}
	})

	res, err := c.Vuln.Surface(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssl check: handshake failed")
	assert.NotContains(t, err.Error(), "header analysis")
	assert.ErrorIs(t, err, ErrHTTP)
	assert.NotNil(t, res.Headers)
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
	}{
		{"example.com", "example.com", 443},
		{"https://example.com/path", "example.com", 443},
		{"http://example.com", "example.com", 80},
		{"example.com:8443", "example.com", 8443},
	}
	for _, tt := range tests {
		host, port := splitTarget(tt.in)
		assert.Equal(t, tt.host, host, tt.in)
		assert.Equal(t, tt.port, port, tt.in)
	}
}
