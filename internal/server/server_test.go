package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentriage/sentriage/internal/buildinfo"
	"github.com/sentriage/sentriage/internal/config"
	"github.com/sentriage/sentriage/internal/report"
	"github.com/sentriage/sentriage/internal/trust"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	cfg := config.Defaults()
	cfg.Server.Port = 0 // let the kernel pick

	store, err := report.NewStore(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv, err := NewServer(cfg, trust.Static(trust.New()), store, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("server did not start")
	}
	return "http://" + srv.Addr()
}

func TestServer_Health(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, buildinfo.Version, health["version"])
}

func TestServer_Metrics(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_VerdictsEmpty(t *testing.T) {
	base := startTestServer(t)

	resp, err := http.Get(base + "/v1/verdicts")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
