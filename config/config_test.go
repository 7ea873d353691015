package config

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
	if cfg.Server.Address != ":8003" {
		t.Errorf("server.address = %q", cfg.Server.Address)
	}
	if cfg.Supervisor.MaxAttempts != 3 {
		t.Errorf("supervisor.max_attempts = %d", cfg.Supervisor.MaxAttempts)
	}
	if cfg.Retrieval.ChunkSize != 500 || cfg.Retrieval.ChunkOverlap != 50 || cfg.Retrieval.TopK != 5 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.LLM.Routing.Model("worker") != "gpt-4o-mini" {
		t.Errorf("worker model fallback = %q", cfg.LLM.Routing.Model("worker"))
	}
	if cfg.Supervisor.WorkerTimeout != 2*time.Minute {
		t.Errorf("worker_timeout = %v", cfg.Supervisor.WorkerTimeout)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  address: ":9000"
supervisor:
  max_attempts: 2
llm:
  routing:
    worker: gpt-4o
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("server.address = %q", cfg.Server.Address)
	}
	if cfg.Supervisor.MaxAttempts != 2 {
		t.Errorf("max_attempts = %d", cfg.Supervisor.MaxAttempts)
	}
	if cfg.LLM.Routing.Model("worker") != "gpt-4o" {
		t.Errorf("worker model = %q", cfg.LLM.Routing.Model("worker"))
	}
	// Untouched keys keep their defaults.
	if cfg.Retrieval.ChunkSize != 500 {
		t.Errorf("chunk_size = %d", cfg.Retrieval.ChunkSize)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigRejectsBadMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("supervisor:\n  max_attempts: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for max_attempts 0")
	}
}

func TestRoutingModelFallback(t *testing.T) {
	r := RoutingConfig{Validation: "a", Fallback: "z"}
	if r.Model("validation") != "a" {
		t.Errorf("validation = %q", r.Model("validation"))
	}
	if r.Model("synthesis") != "z" {
		t.Errorf("synthesis = %q", r.Model("synthesis"))
	}
	if r.Model("unknown") != "z" {
		t.Errorf("unknown = %q", r.Model("unknown"))
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUERYDESK_SERVER_ADDRESS", ":7001")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":7001" {
		t.Errorf("server.address = %q", cfg.Server.Address)
	}
}

func TestAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("llm.api_key = %q", cfg.LLM.APIKey)
	}
}
