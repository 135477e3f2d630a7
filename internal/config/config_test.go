package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"UGI_CONFIG_FILE", "UGI_ENGINE_NAME", "UGI_ENGINE_AUTHOR", "UGI_AGENT",
		"UGI_RANDOM_SEED", "UGI_LENIENT", "UGI_MESSAGES_DIR", "REDIS_URL",
		"MOVE_CACHE_TTL", "DATABASE_URL", "UGI_LISTEN_ADDR", "UGI_STATUS_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent != AgentRandom || cfg.Lenient || cfg.ServerMode() || cfg.MoveCacheTTL != 24*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ugi.yaml")
	body := "engine_name: FromFile\nagent: blunder\nlenient: true\nmove_cache_ttl: 10m\nlisten_addr: \":7000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("UGI_CONFIG_FILE", path)
	t.Setenv("UGI_ENGINE_NAME", "FromEnv")
	t.Setenv("UGI_RANDOM_SEED", "99")
	t.Setenv("MOVE_CACHE_TTL", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineName != "FromEnv" || cfg.Agent != AgentBlunder || !cfg.Lenient || cfg.RandomSeed != 99 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MoveCacheTTL != 30*time.Second {
		t.Fatalf("ttl = %v", cfg.MoveCacheTTL)
	}
	if !cfg.ServerMode() || cfg.ListenAddr != ":7000" {
		t.Fatalf("listen = %q", cfg.ListenAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"agent":  {"UGI_AGENT": "stockfish"},
		"seed":   {"UGI_RANDOM_SEED": "abc"},
		"bool":   {"UGI_LENIENT": "maybe"},
		"ttl":    {"MOVE_CACHE_TTL": "soon"},
		"status": {"UGI_STATUS_ADDR": ":9000"},
		"file":   {"UGI_CONFIG_FILE": "/does/not/exist.yaml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
