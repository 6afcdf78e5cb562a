package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CALO_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CALO_DB_PATH", "")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.ExtractionModel != def.ExtractionModel {
		t.Errorf("ExtractionModel = %q, want %q", cfg.ExtractionModel, def.ExtractionModel)
	}
	if cfg.Timeouts.Lookup != 10*time.Second {
		t.Errorf("Timeouts.Lookup = %v, want 10s", cfg.Timeouts.Lookup)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.APIKey)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
api_key: sk-file
food_db_page_size: 5
timeouts:
  extract: 2s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-file" {
		t.Errorf("APIKey = %q, want sk-file", cfg.APIKey)
	}
	if cfg.FoodDBPageSize != 5 {
		t.Errorf("FoodDBPageSize = %d, want 5", cfg.FoodDBPageSize)
	}
	if cfg.Timeouts.Extract != 2*time.Second {
		t.Errorf("Timeouts.Extract = %v, want 2s", cfg.Timeouts.Extract)
	}
	if cfg.Timeouts.Transcribe != 60*time.Second {
		t.Errorf("Timeouts.Transcribe = %v, want default 60s", cfg.Timeouts.Transcribe)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALO_API_KEY", "sk-env")
	t.Setenv("CALO_DB_PATH", "/tmp/other.sqlite")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_key: sk-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.APIKey)
	}
	if cfg.DBPath != "/tmp/other.sqlite" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestSaveAPIKeyRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "calo", "config.yaml")
	if err := SaveAPIKey(path, "sk-saved"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-saved" {
		t.Errorf("APIKey = %q, want sk-saved", cfg.APIKey)
	}
	if cfg.Timeouts.Storage != 5*time.Second {
		t.Errorf("Timeouts.Storage = %v, want 5s", cfg.Timeouts.Storage)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeouts: [\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
