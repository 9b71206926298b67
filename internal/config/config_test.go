package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresAccessSecret(t *testing.T) {
	t.Setenv("YT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("YT_ACCESS_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without access token secret")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("YT_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("YT_ACCESS_TOKEN_SECRET", "s3cret")
	t.Setenv("YT_PORT", "9090")
	t.Setenv("YT_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("YT_SECURE_COOKIES", "false")
	t.Setenv("YT_JANITOR_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 9090 {
		t.Fatalf("expected port 9090 got %d", cfg.AppPort)
	}
	if cfg.Auth.AccessTTL != 5*time.Minute {
		t.Fatalf("expected access ttl 5m got %v", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.SecureCookies {
		t.Fatal("expected secure cookies disabled")
	}
	if cfg.Janitor.Workers != 2 {
		t.Fatalf("expected fallback janitor workers got %d", cfg.Janitor.Workers)
	}
	if cfg.BodyLimit != 16*1024 {
		t.Fatalf("expected 16KiB body limit got %d", cfg.BodyLimit)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected 10s shutdown timeout got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("YT_S3_BUCKET=media-from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("YT_ENV_FILE", path)
	t.Setenv("YT_ACCESS_TOKEN_SECRET", "s3cret")
	t.Setenv("YT_S3_BUCKET", "")
	os.Unsetenv("YT_S3_BUCKET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ObjectStore.Bucket != "media-from-file" {
		t.Fatalf("expected bucket from env file got %q", cfg.ObjectStore.Bucket)
	}
}
