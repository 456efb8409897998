package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("PingPeriod = %v, want 54s", cfg.PingPeriod)
	}
	if cfg.RateLimit.Calls != 5 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit = %+v, want 5 per 1m", cfg.RateLimit)
	}
	if cfg.Caller.SetupTimeout != 30*time.Second || cfg.Caller.SettleTimeout != time.Second || cfg.Caller.GracePeriod != 10*time.Second {
		t.Errorf("caller timeouts = %v/%v/%v, want 30s/1s/10s",
			cfg.Caller.SetupTimeout, cfg.Caller.SettleTimeout, cfg.Caller.GracePeriod)
	}
	if len(cfg.Caller.ICE.STUNServers) != 2 {
		t.Errorf("STUNServers = %v, want 2 entries", cfg.Caller.ICE.STUNServers)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte(`mode: debug
port: 9000
caller:
  user_id: nurse-station
  setup_timeout: 45s
`)
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CARECALL_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "debug" {
		t.Errorf("Mode = %q, want debug", cfg.Mode)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", cfg.Port)
	}
	if cfg.Caller.UserID != "nurse-station" {
		t.Errorf("Caller.UserID = %q, want nurse-station", cfg.Caller.UserID)
	}
	if cfg.Caller.SetupTimeout != 45*time.Second {
		t.Errorf("Caller.SetupTimeout = %v, want 45s", cfg.Caller.SetupTimeout)
	}
}
