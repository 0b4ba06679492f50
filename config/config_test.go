package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/promptbook/ebook"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "public", cfg.UploadsRoot)
	assert.Equal(t, ebook.DefaultBodyChunkSize, cfg.Ebook.BodyChunkSize)
	assert.Equal(t, ebook.DefaultSampleChunkSize, cfg.Ebook.SampleChunkSize)
	assert.Equal(t, int64(10<<20), cfg.Ebook.MaxAssetBytes)
	assert.Equal(t, 2*time.Minute, cfg.Ebook.Timeout)
	assert.Equal(t, 10, cfg.HTTP.ExportRateLimit)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
port: "9090"
uploads_root: /srv/uploads
log_level: debug
ebook:
  body_chunk_size: 800
  font_dir: /fonts
  font_family: DejaVuSans
http:
  cors_origins: ["https://admin.example.com"]
`)
	t.Setenv("PROMPTBOOK_EBOOK_SAMPLE_CHUNK_SIZE", "250")
	t.Setenv("PROMPTBOOK_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env overrides file")
	assert.Equal(t, "/srv/uploads", cfg.UploadsRoot)
	assert.Equal(t, 800, cfg.Ebook.BodyChunkSize)
	assert.Equal(t, 250, cfg.Ebook.SampleChunkSize)
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	gen := cfg.GeneratorConfig(slog.Default())
	assert.Equal(t, ebook.FontOptions{Dir: "/fonts", Family: "DejaVuSans"}, gen.Fonts)
	assert.Equal(t, 800, gen.BodyChunkSize)
	assert.Equal(t, 250, gen.SampleChunkSize)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "port: [unterminated")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port: "8080",
			Ebook: EbookConfig{
				BodyChunkSize:   1000,
				SampleChunkSize: 500,
				MaxAssetBytes:   1 << 20,
				AssetWorkers:    2,
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "empty port", mutate: func(c *Config) { c.Port = "" }},
		{name: "zero chunk", mutate: func(c *Config) { c.Ebook.SampleChunkSize = 0 }},
		{name: "zero workers", mutate: func(c *Config) { c.Ebook.AssetWorkers = 0 }},
		{name: "family without dir", mutate: func(c *Config) { c.Ebook.FontFamily = "DejaVuSans" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSlogLevel_Fallback(t *testing.T) {
	cfg := Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
