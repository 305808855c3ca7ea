package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentriage/sentriage/internal/config"
	"github.com/sentriage/sentriage/internal/report"
)

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentriage.yaml")

	root := NewRoot()
	root.SetArgs([]string{"init", "--config", path})
	require.NoError(t, root.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, float64(5000), cfg.Triage.VolumeThresholdMB)
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentriage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o644))

	root := NewRoot()
	root.SetArgs([]string{"init", "--config", path})
	assert.Error(t, root.Execute())

	root = NewRoot()
	root.SetArgs([]string{"init", "--config", path, "--force"})
	assert.NoError(t, root.Execute())
}

func TestLoadTrusted_CombinesSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trusted.txt")
	require.NoError(t, os.WriteFile(path, []byte("fromfile\n"), 0o644))

	cfg := config.Defaults()
	cfg.TrustedUsers.Inline = []string{"inline"}
	cfg.TrustedUsers.File = path

	set, err := loadTrusted(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, set.Contains("inline"))
	assert.True(t, set.Contains("fromfile"))
	assert.False(t, set.Contains("other"))
}

func TestTriage_HighRiskVerdictReturnsError(t *testing.T) {
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs.csv")
	csv := "username,timestamp,volume_MB,geo_location,known_malicious\n" +
		"mallory,2025-06-01T12:00:00Z,6000,Germany,True\n"
	require.NoError(t, os.WriteFile(logs, []byte(csv), 0o644))

	root := NewRoot()
	root.SetArgs([]string{"triage", logs, "--config", filepath.Join(dir, "absent.yaml")})
	err := root.Execute()
	require.ErrorIs(t, err, errHighRisk)
}

func TestTriage_SaveWithHighRiskStillClosesStore(t *testing.T) {
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs.csv")
	csv := "username,timestamp,volume_MB,geo_location,known_malicious\n" +
		"mallory,2025-06-01T12:00:00Z,6000,Germany,True\n"
	require.NoError(t, os.WriteFile(logs, []byte(csv), 0o644))

	cfgPath := filepath.Join(dir, "sentriage.yaml")
	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(dir, "verdicts.db")
	require.NoError(t, cfg.Save(cfgPath))

	// The high-risk exit goes through the error return rather than
	// os.Exit, so the deferred store close runs and the run is on disk.
	root := NewRoot()
	root.SetArgs([]string{"triage", logs, "--save", "--config", cfgPath})
	require.ErrorIs(t, root.Execute(), errHighRisk)

	logger := slog.New(slog.DiscardHandler)
	store, err := report.NewStore(cfg.Store.Path, logger)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	verdicts, err := store.Query(report.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, "mallory", verdicts[0].Username)
}

func TestTriage_BenignBatchExitsClean(t *testing.T) {
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs.csv")
	csv := "username,timestamp,volume_MB,geo_location,known_malicious\n" +
		"bob,2025-06-01T12:00:00Z,100,United States,False\n"
	require.NoError(t, os.WriteFile(logs, []byte(csv), 0o644))

	root := NewRoot()
	root.SetArgs([]string{"triage", logs, "--config", filepath.Join(dir, "absent.yaml")})
	require.NoError(t, root.Execute())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	old := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	defer func() { cfgFile = old }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
