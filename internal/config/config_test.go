package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unbywyd/schemareg/internal/loader"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if cfg.Schemas.Dir != "schemas" {
		t.Errorf("default schemas dir = %q", cfg.Schemas.Dir)
	}
	if cfg.Duplicate.Enabled {
		t.Error("duplicate detection must default to disabled")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default log format = %q", cfg.Logging.Format)
	}
	if cfg.Schemas.Pattern != loader.DefaultPattern {
		t.Errorf("default pattern = %q, want %q", cfg.Schemas.Pattern, loader.DefaultPattern)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
schemas:
  dir: ./api/schemas
  pattern: "**/*.json"
duplicate_detection:
  enabled: true
logging:
  level: debug
  format: text
metrics:
  enabled: true
  address: ":9200"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Schemas.Dir != "./api/schemas" || cfg.Schemas.Pattern != "**/*.json" {
		t.Errorf("schemas config = %+v", cfg.Schemas)
	}
	if !cfg.Duplicate.Enabled {
		t.Error("duplicate detection should be enabled")
	}
	if cfg.Metrics.Address != ":9200" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCHEMAREG_SCHEMAS_DIR", "/opt/schemas")
	t.Setenv("SCHEMAREG_DUPLICATE_DETECTION", "true")
	t.Setenv("SCHEMAREG_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schemas.Dir != "/opt/schemas" {
		t.Errorf("schemas dir = %q", cfg.Schemas.Dir)
	}
	if !cfg.Duplicate.Enabled {
		t.Error("env must enable duplicate detection")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown log format")
	}
}

func TestWatchDebounce(t *testing.T) {
	w := WatchConfig{Debounce: "250ms"}
	if w.DebounceDuration() != 250*time.Millisecond {
		t.Errorf("debounce = %v", w.DebounceDuration())
	}
	if (WatchConfig{Debounce: "bogus"}).DebounceDuration() != 500*time.Millisecond {
		t.Error("invalid debounce must fall back to the default")
	}
}
