package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClockSpeed != 100000 {
		t.Errorf("ClockSpeed = %d, want default 100000", cfg.ClockSpeed)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vttc.toml")
	content := `
yosys = "/opt/yosys/bin/yosys"
compact = true
clock_speed = 60
wire_color = 4

[cache]
backend = "redis"
redis = "localhost:6379"

[server]
addr = ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Yosys != "/opt/yosys/bin/yosys" || !cfg.Compact {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ClockSpeed != 60 || cfg.WireColor != 4 {
		t.Errorf("clock/color = %d/%d", cfg.ClockSpeed, cfg.WireColor)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vttc.toml")
	if err := os.WriteFile(path, []byte("= not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config accepted")
	}
}

func TestCacheDirOverride(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = "/tmp/custom"
	if got := cfg.CacheDir(); got != "/tmp/custom" {
		t.Errorf("CacheDir = %q", got)
	}
}
