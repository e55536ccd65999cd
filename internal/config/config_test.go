package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/renders
redis_addr: localhost:6379
cleanup_secret: s3cret
reap_timeout_minutes: 45
storage:
  provider: localfs
  local_root: /tmp/objects
rate_limit:
  rps: 10
  burst: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("default http port = %q", cfg.HTTPPort)
	}
	if cfg.QueueName != "render:jobs" {
		t.Errorf("default queue name = %q", cfg.QueueName)
	}
	if cfg.ReapTimeout() != 45*time.Minute {
		t.Errorf("reap timeout = %v", cfg.ReapTimeout())
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/renders
redis_addr: localhost:6379
cleanup_secret: from-file
storage:
  provider: localfs
  local_root: /tmp/objects
`)

	t.Setenv("CLEANUP_SECRET", "from-env")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CleanupSecret != "from-env" {
		t.Errorf("cleanup secret = %q, env must win", cfg.CleanupSecret)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("http port = %q", cfg.HTTPPort)
	}
}

func TestMissingCleanupSecretFailsLoad(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/renders
redis_addr: localhost:6379
storage:
  provider: localfs
  local_root: /tmp/objects
`)

	if _, err := Load(path); err == nil {
		t.Fatal("a missing cleanup secret must fail startup, not disable auth")
	}
}

func TestUnknownStorageProviderRejected(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/renders
redis_addr: localhost:6379
cleanup_secret: s
storage:
  provider: ftp
`)

	if _, err := Load(path); err == nil {
		t.Fatal("unknown provider must be rejected")
	}
}
