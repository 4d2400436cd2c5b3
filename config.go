package imgembed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the builder, the accessor and the HTTP server.
type Config struct {
	SourceRoot string `yaml:"source_root"` // image tree to scan (default "./imagens-temporarias")
	OutputPath string `yaml:"output_path"` // manifest file (default "./converted_images.json")

	Addr          string        `yaml:"addr"`            // listen address (default ":3000")
	DatabasePath  string        `yaml:"database_path"`   // build history SQLite path (default "data/imgembed.db")
	ManifestTTL   time.Duration `yaml:"manifest_ttl"`    // how often the server checks the manifest file (default 1m)
	MaxUploadSize int64         `yaml:"max_upload_size"` // decoded upload limit in bytes (default 5 MiB)

	MaxWidth  int `yaml:"max_width"`  // optimize bound (default 800)
	MaxHeight int `yaml:"max_height"` // optimize bound (default 600)
	Quality   int `yaml:"quality"`    // optimize JPEG quality (default 80)

	CleanupPaths []string `yaml:"cleanup_paths"`
}

func (c *Config) setDefaults() {
	if c.SourceRoot == "" {
		c.SourceRoot = "./imagens-temporarias"
	}
	if c.OutputPath == "" {
		c.OutputPath = "./converted_images.json"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/imgembed.db"
	}
	if c.ManifestTTL == 0 {
		c.ManifestTTL = time.Minute
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 5 << 20
	}
	if c.MaxWidth == 0 {
		c.MaxWidth = defaultMaxWidth
	}
	if c.MaxHeight == 0 {
		c.MaxHeight = defaultMaxHeight
	}
	if c.Quality == 0 {
		c.Quality = defaultQuality
	}
	if len(c.CleanupPaths) == 0 {
		c.CleanupPaths = append([]string(nil), DefaultCleanupPaths...)
	}
}

// OptimizeOptions returns the resize bounds configured in c.
func (c Config) OptimizeOptions() OptimizeOptions {
	return OptimizeOptions{MaxWidth: c.MaxWidth, MaxHeight: c.MaxHeight, Quality: c.Quality}
}

// LoadConfig reads an optional YAML file, applies IMGEMBED_* environment
// overrides and fills in defaults. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.SourceRoot = EnvOr("IMGEMBED_SOURCE", cfg.SourceRoot)
	cfg.OutputPath = EnvOr("IMGEMBED_OUTPUT", cfg.OutputPath)
	cfg.Addr = EnvOr("IMGEMBED_ADDR", cfg.Addr)
	cfg.DatabasePath = EnvOr("IMGEMBED_DB", cfg.DatabasePath)
	cfg.setDefaults()
	return cfg, nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore attaches a build history store; GET /api/builds is served from it.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithUploadLimiter replaces the default per-IP limiter on the optimize endpoint.
func WithUploadLimiter(l *RateLimiter) Option {
	return func(a *App) {
		a.limiter = l
	}
}
