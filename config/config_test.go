package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.NotEmpty(t, cfg.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "https url", modify: func(c *Config) { c.API.URL = "https://api.example.com/v1" }},
		{name: "bad scheme", modify: func(c *Config) { c.API.URL = "ftp://example.com" }, wantErr: true},
		{name: "no host", modify: func(c *Config) { c.API.URL = "http://" }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "no data dir", modify: func(c *Config) { c.DataDir = "" }, wantErr: true},
		{name: "bad level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "bad format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  url: "https://recipes.example.com"
  timeout: 5s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://recipes.example.com", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Log.Format, "unset fields stay zero so Merge keeps lower layers")
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromFileRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()

	// The session horizon is fixed at three days and cannot be configured.
	path := filepath.Join(dir, "horizon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  horizon: 1h\n"), 0o644))
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")

	path = filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  urll: https://example.com\n"), 0o644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{
		API: APIConfig{URL: "https://other.example.com"},
		Log: LogConfig{Format: "json"},
	})

	assert.Equal(t, "https://other.example.com", cfg.API.URL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level)

	cfg.Merge(nil)
	assert.Equal(t, "https://other.example.com", cfg.API.URL)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/urcuisine-test"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoaderLayers(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.yaml")
	explicitPath := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(userPath, []byte("api:\n  url: https://user.example.com\nlog:\n  level: info\n"), 0o644))
	require.NoError(t, os.WriteFile(explicitPath, []byte("log:\n  level: error\n"), 0o644))

	l := NewLoader(nil)
	l.userPath = userPath

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://user.example.com", cfg.API.URL)
	assert.Equal(t, "info", cfg.Log.Level)

	cfg, err = l.Load(explicitPath)
	require.NoError(t, err)
	assert.Equal(t, "https://user.example.com", cfg.API.URL)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoaderMissingFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(nil)
	l.userPath = filepath.Join(dir, "absent.yaml")

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API.URL, cfg.API.URL)

	_, err = l.Load(filepath.Join(dir, "also-absent.yaml"))
	require.Error(t, err)
}

func TestLoaderRejectsInvalidResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o644))

	l := NewLoader(nil)
	l.userPath = ""
	_, err := l.Load(path)
	require.Error(t, err)
}

func TestEnsureUserConfig(t *testing.T) {
	l := NewLoader(nil)
	l.userPath = filepath.Join(t.TempDir(), "urcuisine", "config.yaml")

	path, err := l.EnsureUserConfig()
	require.NoError(t, err)
	assert.FileExists(t, path)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API, cfg.API)
}
