package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	AgentRandom  = "random"
	AgentBlunder = "blunder"
)

type AppConfig struct {
	EngineName   string `yaml:"engine_name"`
	EngineAuthor string `yaml:"engine_author"`

	Agent      string `yaml:"agent"`
	RandomSeed int64  `yaml:"random_seed"`

	// Lenient keeps the session alive after go/query without a board.
	Lenient     bool   `yaml:"lenient"`
	MessagesDir string `yaml:"messages_dir"`

	RedisURL     string        `yaml:"redis_url"`
	MoveCacheTTL time.Duration `yaml:"move_cache_ttl"`
	DatabaseURL  string        `yaml:"database_url"`

	ListenAddr string `yaml:"listen_addr"`
	StatusAddr string `yaml:"status_addr"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Agent:        AgentRandom,
		MoveCacheTTL: 24 * time.Hour,
	}
}

// Load applies defaults, then the YAML file named by UGI_CONFIG_FILE, then
// environment overrides.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("UGI_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("UGI_ENGINE_NAME")); v != "" {
		cfg.EngineName = v
	}
	if v := strings.TrimSpace(os.Getenv("UGI_ENGINE_AUTHOR")); v != "" {
		cfg.EngineAuthor = v
	}
	if v := strings.TrimSpace(os.Getenv("UGI_AGENT")); v != "" {
		cfg.Agent = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("UGI_RANDOM_SEED")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("UGI_RANDOM_SEED: %w", err)
		}
		cfg.RandomSeed = n
	}
	if v := strings.TrimSpace(os.Getenv("UGI_LENIENT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("UGI_LENIENT: %w", err)
		}
		cfg.Lenient = b
	}
	if v := strings.TrimSpace(os.Getenv("UGI_MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_CACHE_TTL")); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return nil, fmt.Errorf("MOVE_CACHE_TTL: %w", err)
		}
		cfg.MoveCacheTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("UGI_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("UGI_STATUS_ADDR")); v != "" {
		cfg.StatusAddr = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseTTL accepts a Go duration or a plain number of seconds.
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *AppConfig) Validate() error {
	switch c.Agent {
	case AgentRandom, AgentBlunder:
	default:
		return fmt.Errorf("unknown agent %q (want %s or %s)", c.Agent, AgentRandom, AgentBlunder)
	}
	if c.MoveCacheTTL <= 0 {
		return errors.New("move cache ttl must be positive")
	}
	if c.StatusAddr != "" && c.ListenAddr == "" {
		return errors.New("UGI_STATUS_ADDR requires UGI_LISTEN_ADDR")
	}
	return nil
}

// ServerMode reports whether sessions are served over websocket instead of
// stdio.
func (c *AppConfig) ServerMode() bool { return c.ListenAddr != "" }
