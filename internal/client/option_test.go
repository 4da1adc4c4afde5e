package client

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewHTTPClient(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var dump bytes.Buffer
	c := NewHTTPClient(nil, 0,
		WithLogger(zaptest.NewLogger(t)),
		WithUserAgent("1.2"),
		WithRequestID(),
		WithDump(&dump),
	)

	resp, err := c.Get(srv.URL + "/api/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Contains(t, got.Get("User-Agent"), "labdoc/1.2")
	_, err = uuid.Parse(got.Get(RequestIDHeader))
	assert.NoError(t, err)
	assert.Contains(t, dump.String(), "/api/ping")
	assert.Contains(t, dump.String(), RequestIDHeader)
}

func TestWithRequestID_KeepsCallerValue(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
	}))
	defer srv.Close()

	c := NewHTTPClient(nil, 0, WithRequestID())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed")
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "fixed", got)
}
