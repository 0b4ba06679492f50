package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/coreybb/promptbook/ebook"
)

const (
	envPrefix      = "PROMPTBOOK"
	configName     = "promptbook"
	defaultPort    = "8080"
	defaultDBURL   = "user=postgres password=password dbname=promptbook host=localhost port=5432 sslmode=disable"
	defaultUploads = "public"
)

// Config is the runtime configuration of the service and the CLI.
type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	UploadsRoot string `mapstructure:"uploads_root"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Ebook EbookConfig `mapstructure:"ebook"`
	HTTP  HTTPConfig  `mapstructure:"http"`
}

// EbookConfig tunes document generation.
type EbookConfig struct {
	FontDir         string        `mapstructure:"font_dir"`
	FontFamily      string        `mapstructure:"font_family"`
	BodyChunkSize   int           `mapstructure:"body_chunk_size"`
	SampleChunkSize int           `mapstructure:"sample_chunk_size"`
	MaxAssetBytes   int64         `mapstructure:"max_asset_bytes"`
	AssetWorkers    int           `mapstructure:"asset_workers"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// HTTPConfig tunes the HTTP server.
type HTTPConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	ExportRateLimit  int           `mapstructure:"export_rate_limit"`
	ExportRateWindow time.Duration `mapstructure:"export_rate_window"`
	CORSOrigins      []string      `mapstructure:"cors_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", defaultPort)
	v.SetDefault("database_url", defaultDBURL)
	v.SetDefault("uploads_root", defaultUploads)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("ebook.font_dir", "")
	v.SetDefault("ebook.font_family", "")
	v.SetDefault("ebook.body_chunk_size", ebook.DefaultBodyChunkSize)
	v.SetDefault("ebook.sample_chunk_size", ebook.DefaultSampleChunkSize)
	v.SetDefault("ebook.max_asset_bytes", 10<<20)
	v.SetDefault("ebook.asset_workers", 4)
	v.SetDefault("ebook.timeout", 2*time.Minute)

	v.SetDefault("http.request_timeout", 3*time.Minute)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.export_rate_limit", 10)
	v.SetDefault("http.export_rate_window", time.Minute)
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000"})
}

// Load reads defaults, an optional promptbook.yaml (or cfgFile when set) and
// PROMPTBOOK_* environment variables, in increasing precedence.
// A nested key such as ebook.font_dir maps to PROMPTBOOK_EBOOK_FONT_DIR.
func Load(cfgFile string) (*Config, error) {
	return load(viper.New(), cfgFile)
}

// LoadWith is Load on a caller-owned viper instance, so cobra flags bound to
// v take precedence over file and environment.
func LoadWith(v *viper.Viper, cfgFile string) (*Config, error) {
	return load(v, cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptbook")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would make generation misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: port must not be empty")
	case c.Ebook.BodyChunkSize <= 0 || c.Ebook.SampleChunkSize <= 0:
		return fmt.Errorf("config: chunk sizes must be positive (body=%d, sample=%d)",
			c.Ebook.BodyChunkSize, c.Ebook.SampleChunkSize)
	case c.Ebook.MaxAssetBytes <= 0:
		return fmt.Errorf("config: max_asset_bytes must be positive, got %d", c.Ebook.MaxAssetBytes)
	case c.Ebook.AssetWorkers <= 0:
		return fmt.Errorf("config: asset_workers must be positive, got %d", c.Ebook.AssetWorkers)
	case c.Ebook.FontFamily != "" && c.Ebook.FontDir == "":
		return errors.New("config: font_family requires font_dir")
	}
	return nil
}

// GeneratorConfig builds the ebook generator configuration.
func (c *Config) GeneratorConfig(logger *slog.Logger) ebook.Config {
	return ebook.Config{
		Logger: logger,
		Fonts: ebook.FontOptions{
			Dir:    c.Ebook.FontDir,
			Family: c.Ebook.FontFamily,
		},
		BodyChunkSize:   c.Ebook.BodyChunkSize,
		SampleChunkSize: c.Ebook.SampleChunkSize,
		MaxAssetBytes:   c.Ebook.MaxAssetBytes,
		AssetWorkers:    c.Ebook.AssetWorkers,
		Timeout:         c.Ebook.Timeout,
	}
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
