package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boardhub.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.SendQueueSize != DefaultSendQueueSize {
		t.Errorf("SendQueueSize = %d, want %d", cfg.SendQueueSize, DefaultSendQueueSize)
	}
	if cfg.RoomGracePeriod.Std() != DefaultRoomGracePeriod {
		t.Errorf("RoomGracePeriod = %v, want %v", cfg.RoomGracePeriod.Std(), DefaultRoomGracePeriod)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9999"
ping_interval: 5s
room_grace_period: 2m
palette:
  - "#000000"
  - "#ffffff"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.PingInterval.Std() != 5*time.Second {
		t.Errorf("PingInterval = %v, want 5s", cfg.PingInterval.Std())
	}
	if cfg.RoomGracePeriod.Std() != 2*time.Minute {
		t.Errorf("RoomGracePeriod = %v, want 2m", cfg.RoomGracePeriod.Std())
	}
	if len(cfg.Palette) != 2 {
		t.Errorf("Palette = %v, want 2 entries", cfg.Palette)
	}

	// Untouched fields keep their defaults.
	if cfg.WriteTimeout.Std() != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default %v", cfg.WriteTimeout.Std(), DefaultWriteTimeout)
	}
	if cfg.MetricsNamespace != DefaultMetricsNS {
		t.Errorf("MetricsNamespace = %q, want default", cfg.MetricsNamespace)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `read_timeout: "soon"`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted invalid duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load accepted missing file")
	}
}

func TestValidateStaticDir(t *testing.T) {
	cfg := Default()
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted missing static_dir")
	}

	cfg.StaticDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed for existing dir: %v", err)
	}
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("default config has warnings: %v", w)
	}

	cfg.AllowedOrigins = []string{"*"}
	cfg.PingInterval = cfg.ReadTimeout
	warnings := cfg.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2 entries", warnings)
	}
	if !strings.Contains(warnings[0], "allowed_origins") {
		t.Errorf("warning[0] = %q, want origin warning", warnings[0])
	}
}
