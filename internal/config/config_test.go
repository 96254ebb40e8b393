// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the state dir at a temp dir and clears SAGE_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SAGE_HOME", dir)
	for _, k := range []string{"SAGE_OLLAMA_URL", "SAGE_MODEL", "SAGE_MODELFILE", "SAGE_MAX_CHARS", "SAGE_BROWSE_ROOT", "SAGE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mistral-7b-sage", cfg.Model.Name)
	assert.Equal(t, "http://localhost:11434", cfg.Local.OllamaURL)
	assert.Equal(t, "SAGE Session", cfg.Session.Name)
	assert.Equal(t, 20000, cfg.Manifest.MaxChars)
	assert.Equal(t, filepath.Join(dir, "sessions.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join(dir, "sage.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(dir, ".model_built"), cfg.FlagPath())
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	dir := isolate(t)
	toml := `
[model]
name = "sage_v0.9"

[manifest]
max_chars = 5000
browse_root = "/srv/manifests"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600))
	t.Setenv("SAGE_MAX_CHARS", "1234")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sage_v0.9", cfg.Model.Name)
	assert.Equal(t, 1234, cfg.Manifest.MaxChars)
	assert.Equal(t, "/srv/manifests", cfg.Manifest.BrowseRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "ollama", cfg.Model.RuntimeBin)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	js := `{"local": {"ollama_url": "http://gpubox.example.com:11434"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(js), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gpubox.example.com:11434", cfg.Local.OllamaURL)
	assert.Equal(t, 300, cfg.Local.TimeoutSecs)
}

func TestLoad_BrokenTOMLFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[model\nname="), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Model.Name, cfg.Model.Name)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"verbose\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level")
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SAGE_OLLAMA_URL", "http://10.0.0.5:11434")
	t.Setenv("SAGE_MODEL", "llama3")
	t.Setenv("SAGE_MODELFILE", "/opt/sage/Modelfile")
	t.Setenv("SAGE_MAX_CHARS", "not-a-number")
	t.Setenv("SAGE_BROWSE_ROOT", "~/manifests")
	t.Setenv("SAGE_LOG_LEVEL", "WARN")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://10.0.0.5:11434", cfg.Local.OllamaURL)
	assert.Equal(t, "llama3", cfg.Model.Name)
	assert.Equal(t, "/opt/sage/Modelfile", cfg.Model.Modelfile)
	assert.Equal(t, 20000, cfg.Manifest.MaxChars)
	assert.Equal(t, "~/manifests", cfg.Manifest.BrowseRoot)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty model", func(c *Config) { c.Model.Name = "" }, "model"},
		{"negative timeout", func(c *Config) { c.Local.TimeoutSecs = -1 }, "local"},
		{"negative budget", func(c *Config) { c.Manifest.MaxChars = -5 }, "manifest"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui"},
		{"empty session name", func(c *Config) { c.Session.Name = "" }, "session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(validation.Errors)
			require.True(t, ok, "expected validation.Errors, got %T", err)
			assert.Contains(t, errs, tt.field)
		})
	}
}

// =============================================================================
// SAVE / GET / SET TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Manifest.BrowseRoot = "/data/in"
	cfg.UI.Markdown = false
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/in", loaded.Manifest.BrowseRoot)
	assert.False(t, loaded.UI.Markdown)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# SAGE configuration file")
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("manifest.max_chars", "8000"))
	v, err := cfg.Get("manifest.max_chars")
	require.NoError(t, err)
	assert.Equal(t, 8000, v)

	require.NoError(t, cfg.Set("ui.markdown", "false"))
	assert.False(t, cfg.UI.Markdown)

	require.NoError(t, cfg.Set("model.runtime-bin", "/usr/local/bin/ollama"))
	assert.Equal(t, "/usr/local/bin/ollama", cfg.Model.RuntimeBin)

	_, err = cfg.Get("routing.max_tier")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Error(t, cfg.Set("manifest.max_chars", "lots"))
	assert.Error(t, cfg.Set("version.minor", "1"))

	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

// =============================================================================
// GLOBAL TESTS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Model.Name = "test-model"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()
	custom := Default()
	custom.Session.Name = "Audit Session"
	SetGlobal(custom)

	assert.Equal(t, "Audit Session", Global().Session.Name)
	require.NoError(t, ReloadGlobal())
	assert.Equal(t, "SAGE Session", Global().Session.Name)
}
