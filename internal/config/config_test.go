package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/pairkit/internal/testutil"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	testutil.SetEnv(t, "HOME", home)
	for _, k := range []string{"PAIRKIT_LS_COMMAND", "PAIRKIT_LS_ARGS", "PAIRKIT_LEDGER", "PAIRKIT_LEDGER_PATH", "PAIRKIT_LOG_LEVEL", "PAIRKIT_METRICS_ADDR", "PAIRKIT_REVEAL_COMMAND"} {
		testutil.SetEnv(t, k, "")
	}
	ResetEnv()
	t.Cleanup(ResetEnv)
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, filepath.Join(home, DirName, "ledger.db"), cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce.Std())
	assert.Empty(t, cfg.Sources)
}

func TestLoadLayers(t *testing.T) {
	home := isolate(t)
	testutil.WriteFile(t, filepath.Join(home, DirName), "pairkit.yaml", `
languageServer:
  command: copilot-language-server
  args: ["--stdio"]
log:
  level: debug
watchDebounce: 250ms
`)
	project := t.TempDir()
	testutil.WriteFile(t, project, "pairkit.json", `{"ledger": {"driver": "memory"}, "log": {"level": "warn"}}`)
	nested := filepath.Join(project, "Sources", "App")
	testutil.WriteFile(t, nested, "keep.swift", "")

	cfg, err := Load(nested)
	require.NoError(t, err)

	assert.Equal(t, "copilot-language-server", cfg.LanguageServer.Command)
	assert.Equal(t, []string{"--stdio"}, cfg.LanguageServer.Args)
	assert.Equal(t, "memory", cfg.Ledger.Driver)
	assert.Equal(t, "warn", cfg.Log.Level, "project overrides global")
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce.Std())
	assert.Len(t, cfg.Sources, 2)
}

func TestLoadProjectDotDir(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	testutil.WriteFile(t, filepath.Join(project, DirName), "pairkit.yml", "metricsAddr: \":9100\"\n")

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	testutil.SetEnv(t, "PAIRKIT_LS_COMMAND", "/bin/ls-server")
	testutil.SetEnv(t, "PAIRKIT_LS_ARGS", "--stdio --verbose")
	testutil.SetEnv(t, "PAIRKIT_LEDGER", "memory")
	testutil.SetEnv(t, "PAIRKIT_REVEAL_COMMAND", "code -r")
	ResetEnv()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/bin/ls-server", cfg.LanguageServer.Command)
	assert.Equal(t, []string{"--stdio", "--verbose"}, cfg.LanguageServer.Args)
	assert.Equal(t, "memory", cfg.Ledger.Driver)
	assert.Equal(t, []string{"code", "-r"}, cfg.RevealCommand)
}

func TestLoadInvalidFile(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	testutil.WriteFile(t, project, "pairkit.json", "{broken")

	_, err := Load(project)
	assert.ErrorContains(t, err, "parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.WatchDebounce = Duration(time.Second)
			cfg.LanguageServer.Command = "srv"
			path := filepath.Join(dir, name)
			require.NoError(t, cfg.Save(path))

			loaded := Default()
			require.NoError(t, loaded.merge(path))
			assert.Equal(t, time.Second, loaded.WatchDebounce.Std())
			assert.Equal(t, "srv", loaded.LanguageServer.Command)
		})
	}
}
