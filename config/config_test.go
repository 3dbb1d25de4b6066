package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 45000, cfg.Translation.ChunkSize)
	assert.Equal(t, 60*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, 11.0, cfg.Layout.FontSize)
	assert.InDelta(t, 17.6, cfg.Layout.LineHeightPoints(), 1e-9)
	assert.Equal(t, 50.0, cfg.Layout.Margin)
	assert.Equal(t, "gofpdf", cfg.Render.Backend)
	assert.False(t, cfg.Translation.PinDetectedSource)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
translation:
  chunk_size: 1000
  timeout: 5s
  pin_detected_source: true
layout:
  margin: 36
render:
  backend: gopdf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Translation.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.Translation.Timeout)
	assert.True(t, cfg.Translation.PinDetectedSource)
	assert.Equal(t, 36.0, cfg.Layout.Margin)
	assert.Equal(t, "gopdf", cfg.Render.Backend)
	// 未设置的字段保持默认值
	assert.Equal(t, 11.0, cfg.Layout.FontSize)
	assert.Equal(t, DefaultFontURL, cfg.Fonts.URL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.Translation.ChunkSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"DEEPL_AUTH_KEY":         "abc:fx",
		"ADMIN_TOKEN":            "secret",
		"PORT":                   "3000",
		"LOG_LEVEL":              "debug",
		"FONT_CACHE_PATH":        "/tmp/font.ttf",
		"TRANSLATION_CHUNK_SIZE": "200",
		"TRANSLATION_TIMEOUT":    "2s",
		"MAX_UPLOAD_MB":          "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "abc:fx", cfg.Translation.AuthKey)
	assert.Equal(t, "secret", cfg.Server.AdminToken)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/font.ttf", cfg.Fonts.CachePath)
	assert.Equal(t, 200, cfg.Translation.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, int64(5), cfg.Server.MaxUploadMB)
}

func TestApplyEnvLibreTranslate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envFrom(map[string]string{
		"LIBRETRANSLATE_URL": "http://localhost:5000",
	})))

	assert.Equal(t, "libretranslate", cfg.Translation.Provider)
	assert.Equal(t, "http://localhost:5000", cfg.Translation.APIURL)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvBadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{"TRANSLATION_CHUNK_SIZE": "many"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Translation.ChunkSize = 0 }},
		{"zero timeout", func(c *Config) { c.Translation.Timeout = 0 }},
		{"unknown provider", func(c *Config) { c.Translation.Provider = "babel" }},
		{"libretranslate without url", func(c *Config) { c.Translation.Provider = "libretranslate" }},
		{"zero font size", func(c *Config) { c.Layout.FontSize = 0 }},
		{"negative margin", func(c *Config) { c.Layout.Margin = -1 }},
		{"unknown backend", func(c *Config) { c.Render.Backend = "cairo" }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"empty font cache", func(c *Config) { c.Fonts.CachePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
