package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 9090
  public_url: "https://relay.example.com"
  max_body_mb: 20
log:
  level: "debug"
  format: "json"
store:
  backend: "redis"
  max_contracts: 50
storage:
  backend: "minio"
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "contracts"
  expire_days: 5
redis:
  addr: "localhost:6379"
  ttl_hours: 72
mail:
  api_key: "SG.test"
  from_address: "relay@example.com"
  attach_pdf: false
  timeout_seconds: 5
links:
  secret: "link-secret"
  expire_hours: 24
rate_limit:
  requests: 10
  window_seconds: 30
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "https://relay.example.com" {
		t.Errorf("Expected public url, got %s", cfg.Server.PublicURL)
	}
	if cfg.Server.MaxBodyMB != 20 {
		t.Errorf("Expected max_body_mb 20, got %d", cfg.Server.MaxBodyMB)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if cfg.Store.Backend != StoreRedis || cfg.Store.MaxContracts != 50 {
		t.Errorf("Unexpected store config %+v", cfg.Store)
	}
	if cfg.Storage.Backend != StorageMinio {
		t.Errorf("Expected minio storage, got %s", cfg.Storage.Backend)
	}
	if cfg.Minio.ExpireDays != 5 {
		t.Errorf("Expected expire_days 5, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Redis.TTLHours != 72 {
		t.Errorf("Expected ttl_hours 72, got %d", cfg.Redis.TTLHours)
	}
	if cfg.Mail.ShouldAttachPDF() {
		t.Error("Expected attach_pdf false")
	}
	if cfg.Mail.Timeout() != 5*time.Second {
		t.Errorf("Expected 5s mail timeout, got %v", cfg.Mail.Timeout())
	}
	if cfg.Links.Secret != "link-secret" || cfg.Links.ExpireHours != 24 {
		t.Errorf("Unexpected links config %+v", cfg.Links)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window() != 30*time.Second {
		t.Errorf("Unexpected rate limit config %+v", cfg.RateLimit)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "http://localhost:8080" {
		t.Errorf("Expected default public url, got %s", cfg.Server.PublicURL)
	}
	if cfg.Server.MaxBodyMB != 10 {
		t.Errorf("Expected default max_body_mb 10, got %d", cfg.Server.MaxBodyMB)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("Expected default store memory, got %s", cfg.Store.Backend)
	}
	if cfg.Storage.Backend != StorageFilesystem {
		t.Errorf("Expected default storage filesystem, got %s", cfg.Storage.Backend)
	}
	if cfg.Mail.Host != "https://api.sendgrid.com" {
		t.Errorf("Expected default mail host, got %s", cfg.Mail.Host)
	}
	if !cfg.Mail.ShouldAttachPDF() {
		t.Error("Expected attach_pdf to default to true")
	}
	if cfg.Mail.Timeout() != 10*time.Second {
		t.Errorf("Expected default mail timeout 10s, got %v", cfg.Mail.Timeout())
	}
	if cfg.Links.ExpireHours != 168 {
		t.Errorf("Expected default link expiry 168h, got %d", cfg.Links.ExpireHours)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default log format text, got %s", cfg.Log.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SENDGRID_API_KEY", "SG.from-env")
	t.Setenv("LINK_SECRET", "env-secret")

	cfg, err := Load(writeConfig(t, "mail:\n  api_key: \"SG.from-file\"\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070 from env, got %d", cfg.Server.Port)
	}
	if cfg.Mail.APIKey != "SG.from-env" {
		t.Errorf("Expected api key from env, got %s", cfg.Mail.APIKey)
	}
	if cfg.Links.Secret != "env-secret" {
		t.Errorf("Expected link secret from env, got %s", cfg.Links.Secret)
	}
}

func TestLoadRejectsBadBackends(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown store", "store:\n  backend: \"etcd\"\n"},
		{"redis without addr", "store:\n  backend: \"redis\"\n"},
		{"unknown storage", "storage:\n  backend: \"ftp\"\n"},
		{"minio without bucket", "storage:\n  backend: \"minio\"\nminio:\n  endpoint: \"localhost:9000\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: yaml: content:"))
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func writeDotEnv(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	chdir(t, dir)
}

func TestLoadDotEnv(t *testing.T) {
	// Registers a restore, then clears the variable so .env can set it.
	t.Setenv("MAIL_FROM_ADDRESS", "")
	os.Unsetenv("MAIL_FROM_ADDRESS")

	configPath := writeConfig(t, "server:\n  port: 9000\n")
	writeDotEnv(t, "MAIL_FROM_ADDRESS=dotenv@example.com\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Mail.FromAddress != "dotenv@example.com" {
		t.Errorf("Expected from address from .env, got %q", cfg.Mail.FromAddress)
	}
}

func TestLoadMalformedDotEnv(t *testing.T) {
	configPath := writeConfig(t, "server:\n  port: 9000\n")
	writeDotEnv(t, "LINK_SECRET=\"unterminated\n")

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for malformed .env")
	}
}

func TestLoadWithoutDotEnv(t *testing.T) {
	configPath := writeConfig(t, "server:\n  port: 9000\n")
	chdir(t, t.TempDir())

	if _, err := Load(configPath); err != nil {
		t.Errorf("Expected a missing .env to be ignored, got %v", err)
	}
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Failed to restore working directory: %v", err)
		}
	})
}
