package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifung-0/lightsail-auto/pkg/dashboard"
	"github.com/ifung-0/lightsail-auto/pkg/history"
	"github.com/ifung-0/lightsail-auto/pkg/status"
)

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIndexServesPage(t *testing.T) {
	srv := httptest.NewServer(dashboard.New(status.NewHub(nil), nil, nil).Handler())
	defer srv.Close()

	resp := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestStatsReflectHub(t *testing.T) {
	hub := status.NewHub(nil)
	hub.Update(status.Snapshot{
		State:     status.StateRunning,
		Book:      "The Lighthouse Keeper",
		PagesRead: 12,
		StartedAt: time.Now().Add(-90 * time.Second),
	})

	srv := httptest.NewServer(dashboard.New(hub, nil, nil).Handler())
	defer srv.Close()

	resp := get(t, srv, "/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "running", snap["status"])
	assert.Equal(t, "The Lighthouse Keeper", snap["book"])
	assert.Equal(t, float64(12), snap["pages_read"])
	assert.NotEmpty(t, snap["session_duration"])
}

func TestLogsEndpoint(t *testing.T) {
	hub := status.NewHub(nil)
	hub.Log(status.LevelInfo, "selected book: The Lighthouse Keeper")
	hub.Log(status.LevelWarning, "page flip failed (1 in a row)")

	srv := httptest.NewServer(dashboard.New(hub, nil, nil).Handler())
	defer srv.Close()

	resp := get(t, srv, "/api/logs")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []status.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, status.LevelInfo, entries[0].Level)
	assert.Equal(t, status.LevelWarning, entries[1].Level)
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	srv := httptest.NewServer(dashboard.New(status.NewHub(nil), nil, nil).Handler())
	defer srv.Close()

	resp := get(t, srv, "/api/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions []history.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	assert.Empty(t, sessions)
}

func TestHistoryEndpointWithStore(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), status.Snapshot{
		Book:      "The Silent Harbor",
		PagesRead: 5,
		StartedAt: time.Now().Add(-time.Hour),
	}))

	srv := httptest.NewServer(dashboard.New(status.NewHub(nil), store, nil).Handler())
	defer srv.Close()

	resp := get(t, srv, "/api/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions []history.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "The Silent Harbor", sessions[0].Book)
}
