package configs

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CHAT_SERVER_URL", "")
	t.Setenv("CHAT_USERNAME", "  alice ")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.IsDevelopment() {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.ServerURL != "ws://127.0.0.1:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Username != "alice" {
		t.Errorf("Username = %q, want trimmed alice", cfg.Username)
	}
	if cfg.DialTimeout != 10*time.Second {
		t.Errorf("DialTimeout = %s", cfg.DialTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.MediaEnabled() {
		t.Error("media should be disabled without S3 settings")
	}
}

func TestLoadConfigRejectsBadURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"http scheme", "http://localhost:8080"},
		{"no host", "ws://"},
		{"garbage", "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHAT_SERVER_URL", tt.url)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %q", tt.url)
			}
		})
	}
}

func TestMediaEnabled(t *testing.T) {
	cfg := AppConfig{
		S3BucketName:      "bucket",
		S3Endpoint:        "https://s3.test",
		S3AccessKeyID:     "id",
		S3SecretAccessKey: "secret",
	}
	if !cfg.MediaEnabled() {
		t.Fatal("expected media to be enabled")
	}

	cfg.S3SecretAccessKey = ""
	if cfg.MediaEnabled() {
		t.Fatal("expected media to be disabled without secret")
	}
}
