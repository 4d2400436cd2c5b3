package imgembed

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SourceRoot != "./imagens-temporarias" || cfg.OutputPath != "./converted_images.json" {
		t.Errorf("paths = %q, %q", cfg.SourceRoot, cfg.OutputPath)
	}
	if cfg.MaxWidth != 800 || cfg.MaxHeight != 600 || cfg.Quality != 80 {
		t.Errorf("optimize defaults = %d/%d/%d", cfg.MaxWidth, cfg.MaxHeight, cfg.Quality)
	}
	if cfg.MaxUploadSize != 5<<20 {
		t.Errorf("MaxUploadSize = %d", cfg.MaxUploadSize)
	}
	if len(cfg.CleanupPaths) != len(DefaultCleanupPaths) {
		t.Errorf("CleanupPaths = %v", cfg.CleanupPaths)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgembed.yaml")
	yml := `source_root: ./assets
output_path: ./web/images.json
manifest_ttl: 30s
max_width: 400
cleanup_paths:
  - ./assets
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMGEMBED_OUTPUT", "./env.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SourceRoot != "./assets" {
		t.Errorf("SourceRoot = %q", cfg.SourceRoot)
	}
	if cfg.OutputPath != "./env.json" {
		t.Errorf("OutputPath = %q, env should win", cfg.OutputPath)
	}
	if cfg.ManifestTTL != 30*time.Second {
		t.Errorf("ManifestTTL = %v", cfg.ManifestTTL)
	}
	if cfg.MaxWidth != 400 || cfg.MaxHeight != 600 {
		t.Errorf("bounds = %dx%d", cfg.MaxWidth, cfg.MaxHeight)
	}
	if len(cfg.CleanupPaths) != 1 || cfg.CleanupPaths[0] != "./assets" {
		t.Errorf("CleanupPaths = %v", cfg.CleanupPaths)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_width: [nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
