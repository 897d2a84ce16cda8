package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every key LoadConfig reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "AI_PROVIDER", "PORT", "STORE_DRIVER", "DATABASE_DSN", "MONGO_URI",
		"QUESTIONS_DB_NAME", "REDIS_ADDR", "JWT_SECRET", "AUTH_ENABLED", "GENERATION_TIMEOUT",
		"BATCH_CONCURRENCY", "FEEDBACK_CACHE_TTL", "FEEDBACK_EXPORT_ENABLED",
		"FEEDBACK_EXPORT_SCHEDULE", "FEEDBACK_EXPORT_DIR", "ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_DefaultProvider(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Provider != "gemini" {
		t.Fatalf("expected provider gemini, got %s", cfg.Provider)
	}
	if cfg.StoreDriver != "sqlite" || cfg.BatchConcurrency != 3 || cfg.GenerationTimeout != 45*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_UnsupportedProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "unknown")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("GENERATION_TIMEOUT", "10s")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoreDriver != "postgres" || cfg.BatchConcurrency != 5 || cfg.GenerationTimeout != 10*time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !cfg.AuthEnabled || len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected auth/origins: %+v", cfg)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":       "cassandra",
		"BATCH_CONCURRENCY":  "0",
		"GENERATION_TIMEOUT": "soon",
		"AUTH_ENABLED":       "maybe",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		if _, err := LoadConfig(); err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}

	clearEnv(t)
	t.Setenv("AUTH_ENABLED", "true")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when auth is enabled without a secret")
	}
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "store_driver: mongo\nport: \"9000\"\ngeneration_timeout: 20s\nallowed_origins:\n  - https://example.test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoreDriver != "mongo" || cfg.GenerationTimeout != 20*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Port != "9100" {
		t.Fatalf("expected env to override file port, got %s", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://example.test" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UNIT_TEST_ENV", "value")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %s", got)
	}

	t.Setenv("UNIT_TEST_ENV", "")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback value, got %s", got)
	}
}

func TestGormDriver(t *testing.T) {
	cases := []struct {
		driver, dsn, want string
	}{
		{"sqlite", "file:q.db", "sqlite"},
		{"postgres", "host=db user=q", "postgres"},
		{"mongo", "file:feedback.db", "sqlite"},
		{"mongo", "postgres://q@db/feedback", "postgres"},
		{"mongo", "host=db user=q dbname=feedback", "postgres"},
	}
	for _, c := range cases {
		cfg := &Config{StoreDriver: c.driver, DatabaseDSN: c.dsn}
		if got := cfg.GormDriver(); got != c.want {
			t.Fatalf("GormDriver(%s, %s) = %s, want %s", c.driver, c.dsn, got, c.want)
		}
	}
}
