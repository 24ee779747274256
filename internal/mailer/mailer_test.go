package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsMessage(t *testing.T) {
	var got message
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123", "reports@societywatch.example")
	err := c.Send(context.Background(), "admin@soc.example", "Daily Summary", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "Bearer key-123", authHeader)
	assert.Equal(t, "reports@societywatch.example", got.From)
	assert.Equal(t, "admin@soc.example", got.To)
	assert.Equal(t, "Daily Summary", got.Subject)
	assert.Equal(t, "<p>hi</p>", got.HTMLBody)
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "reports@societywatch.example")
	err := c.Send(context.Background(), "admin@soc.example", "s", "b")
	assert.ErrorContains(t, err, "502")
}

func TestSendUnconfigured(t *testing.T) {
	c := New("", "", "")
	err := c.Send(context.Background(), "a@b.example", "s", "b")
	assert.Error(t, err)
}
