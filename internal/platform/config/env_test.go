package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"EMBERCLASH_TEST_PORT" envDefault:"123"`
}

type envPrefixTestConfig struct {
	Addr string `env:"ADDR" envDefault:"localhost"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("EMBERCLASH_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvPrefixed(t *testing.T) {
	var cfg envPrefixTestConfig
	t.Setenv("COMBATD_ADDR", ":9000")

	if err := ParseEnvPrefixed("COMBATD_", &cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected prefixed addr, got %q", cfg.Addr)
	}
}
