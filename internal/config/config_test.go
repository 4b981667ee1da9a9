package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("PORT", "8080")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("AI_TIMEOUT", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.AI.Timeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.DBPath != "" {
		t.Errorf("expected empty DB path, got %q", cfg.DBPath)
	}
}

func TestLoadParsesOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := &Config{Port: "8080", AI: AIConfig{Model: "m", Timeout: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestValidateRejectsEmptyPort(t *testing.T) {
	cfg := &Config{AI: AIConfig{Model: "m", Timeout: time.Second}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty port")
	}
}
