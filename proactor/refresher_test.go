package proactor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundish/turbo-ipc/internal/config"
)

func TestFetchSendsBearerTokenAndDecodesSection(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/config/guid-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(config.Section{ListenAddr: "127.0.0.1", ListenPort: 60000})
	}))
	defer srv.Close()

	refresher := NewConfigRefresher(srv.URL, "secret-token")
	section, err := refresher.Fetch(context.Background(), "guid-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, 60000, section.ListenPort)
}

func TestFetchReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	refresher := NewConfigRefresher(srv.URL, "secret-token")
	_, err := refresher.Fetch(context.Background(), "missing")
	require.Error(t, err)
}
